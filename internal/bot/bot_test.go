package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskward/internal/apperr"
	"taskward/internal/model"
)

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data   string
		want   confirmationRequest
		wantOK bool
	}{
		{"complete:12", confirmationRequest{targetID: 12, action: actionComplete}, true},
		{"undo:3", confirmationRequest{targetID: 3, action: actionUndo}, true},
		{"delete:7", confirmationRequest{targetID: 7, action: actionDelete}, true},
		{"redeem:9", confirmationRequest{targetID: 9, action: actionRedeem}, true},
		{"redeem:0", confirmationRequest{}, false},
		{"complete:abc", confirmationRequest{}, false},
		{"unknown:1", confirmationRequest{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, ok := parseCallback(tc.data)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Недостаточно очков.", userMessage(apperr.InsufficientBalance(1, 5, 10)))
	assert.Equal(t, "Эта награда уже получена.", userMessage(apperr.AlreadyRedeemed()))
	assert.Equal(t, "Не найдено или уже удалено.", userMessage(apperr.NotFound("event", 4)))
	assert.Equal(t, "Проверь данные: Title is required", userMessage(apperr.Validation("Title is required")))
	assert.Contains(t, userMessage(apperr.InvalidTransition("status is completed")), "status is completed")

	// Storage causes never reach the user.
	storage := apperr.Storage("complete event", fmt.Errorf("disk I/O error"))
	assert.NotContains(t, userMessage(storage), "disk")
	assert.NotContains(t, userMessage(fmt.Errorf("raw")), "raw")
}

func TestParseFrequencyInput(t *testing.T) {
	for _, opt := range frequencyOptions {
		freq, ok := parseFrequencyInput(opt.label)
		require.True(t, ok, opt.label)
		assert.Equal(t, opt.freq, freq)
	}

	freq, ok := parseFrequencyInput("Weekly")
	require.True(t, ok)
	assert.Equal(t, model.FrequencyWeekly, freq)

	freq, ok = parseFrequencyInput("месяц")
	require.True(t, ok)
	assert.Equal(t, model.FrequencyMonthly, freq)

	_, ok = parseFrequencyInput("hourly")
	assert.False(t, ok)
}

func TestParseStartDate(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2025, 3, 10, 21, 30, 0, 0, time.UTC) // 2025-03-11 00:30 in MSK

	today, err := parseStartDate("2025-03-11", now, loc)
	require.NoError(t, err)
	assert.True(t, today.Equal(now), "today resolves to now")

	later, err := parseStartDate("2025-04-01", now, loc)
	require.NoError(t, err)
	assert.True(t, later.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, loc)))

	_, err = parseStartDate("01.04.2025", now, loc)
	assert.Error(t, err)
}

func TestParseEndDate(t *testing.T) {
	end, err := parseEndDate("2025-12-31", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 31, end.Day())
	assert.Equal(t, 23, end.Hour())
	assert.True(t, end.Before(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDescribeFrequency(t *testing.T) {
	assert.Equal(t, "каждый день", describeFrequency(model.FrequencyDaily, 1))
	assert.Equal(t, "каждый год", describeFrequency(model.FrequencyYearly, 0))
	assert.Equal(t, "раз в 2 нед.", describeFrequency(model.FrequencyWeekly, 2))
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Полить цветы", shortTitle("полить цветы", 20))
	assert.Equal(t, "Очень длинн…", shortTitle("очень длинное название", 12))
	assert.Equal(t, "Две строки", shortTitle("две\nстроки", 20))
}

func TestFormatEventMarksOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ev := model.TaskEvent{ID: 5, TaskTitle: "зарядка <утро>", PointsEarned: 10, Status: model.StatusScheduled}

	ev.ScheduledDate = now.Add(-time.Hour)
	out := formatEvent(ev, now, time.UTC)
	assert.Contains(t, out, iconOverdue)
	assert.Contains(t, out, "просрочено")
	assert.Contains(t, out, "Зарядка &lt;утро&gt;")

	ev.ScheduledDate = now.Add(24 * time.Hour)
	assert.Contains(t, formatEvent(ev, now, time.UTC), iconDue)

	ev.ScheduledDate = now.Add(5 * 24 * time.Hour)
	assert.Contains(t, formatEvent(ev, now, time.UTC), iconDefault)
}
