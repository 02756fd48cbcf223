package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyScan(t *testing.T) {
	var f Frequency
	require.NoError(t, f.Scan("monthly"))
	assert.Equal(t, FrequencyMonthly, f)
	require.NoError(t, f.Scan([]byte("yearly")))
	assert.Equal(t, FrequencyYearly, f)

	assert.ErrorIs(t, f.Scan("hourly"), ErrUnknownEnum)
	assert.ErrorIs(t, f.Scan(nil), ErrUnknownEnum)
	assert.ErrorIs(t, f.Scan(int64(1)), ErrUnknownEnum)
	assert.Equal(t, FrequencyYearly, f, "a failed scan leaves the value alone")
}

func TestFrequencyValue(t *testing.T) {
	v, err := FrequencyWeekly.Value()
	require.NoError(t, err)
	assert.Equal(t, "weekly", v)

	_, err = Frequency(0).Value()
	assert.ErrorIs(t, err, ErrUnknownEnum)
	assert.Equal(t, "Frequency(0)", Frequency(0).String())
}

func TestEventStatus(t *testing.T) {
	var s EventStatus
	require.NoError(t, s.Scan("cancelled"))
	assert.Equal(t, StatusCancelled, s)
	assert.ErrorIs(t, s.Scan("done"), ErrUnknownEnum)

	_, err := EventStatus(99).Value()
	assert.ErrorIs(t, err, ErrUnknownEnum)

	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusCompleted.Terminal())
}

func TestTaskEnded(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	open := Task{}
	assert.False(t, open.Ended(now.AddDate(100, 0, 0)))

	end := now
	bounded := Task{EndDate: &end}
	assert.False(t, bounded.Ended(now))
	assert.True(t, bounded.Ended(now.Add(time.Nanosecond)))
}

func TestEventIsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ev := TaskEvent{Status: StatusScheduled, ScheduledDate: now.Add(-time.Minute)}
	assert.True(t, ev.IsOverdue(now))

	ev.ScheduledDate = now
	assert.False(t, ev.IsOverdue(now))

	ev.ScheduledDate = now.Add(-time.Hour)
	ev.Status = StatusCompleted
	assert.False(t, ev.IsOverdue(now))
}

func TestValidateTask(t *testing.T) {
	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	valid := Task{
		UserID: 1, Icon: "🏃", Title: "Run", Frequency: FrequencyDaily,
		FrequencyInterval: 1, StartDate: created, PointsReward: 3,
	}
	require.NoError(t, ValidateTask(&valid, created))

	bad := valid
	bad.Title = ""
	bad.Frequency = Frequency(7)
	bad.FrequencyInterval = 0
	bad.StartDate = created.Add(-time.Hour)
	end := created.Add(-2 * time.Hour)
	bad.EndDate = &end

	err := ValidateTask(&bad, created)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 5)
	assert.Contains(t, err.Error(), "Title is required")
	assert.Contains(t, err.Error(), "Frequency has an unknown value")
	assert.Contains(t, err.Error(), "end date must be after start date")
}

func TestValidateEvent(t *testing.T) {
	ev := TaskEvent{Status: StatusCompleted, ScheduledDate: time.Now()}
	assert.ErrorContains(t, ValidateEvent(&ev), "completed date is required")

	ev.Status = EventStatus(0)
	ev.ScheduledDate = time.Time{}
	err := ValidateEvent(&ev)
	assert.ErrorContains(t, err, "Status has an unknown value")
	assert.ErrorContains(t, err, "scheduled date is required")
}

func TestValidateReward(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	r := Reward{UserID: 1, Icon: "🎁", Title: "Gift", PointsRequired: 5}
	require.NoError(t, ValidateReward(&r, now))

	later := now.Add(time.Hour)
	r.DateRedeemed = &later
	assert.ErrorContains(t, ValidateReward(&r, now), "redemption date")

	r.DateRedeemed = nil
	r.PointsRequired = 0
	assert.ErrorContains(t, ValidateReward(&r, now), "PointsRequired must be greater than 0")
}

func TestValidateUser(t *testing.T) {
	assert.NoError(t, ValidateUser(&User{Name: "eve"}))
	assert.Error(t, ValidateUser(&User{}))
	assert.Error(t, ValidateUser(&User{Name: "eve", Points: -1}))
}
