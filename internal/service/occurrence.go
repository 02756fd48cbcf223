package service

import (
	"time"

	"taskward/internal/apperr"
	"taskward/internal/model"
)

// Generator computes occurrences of recurring tasks. Calendar arithmetic is
// done in Location so that "every month on the 31st" follows the user's
// calendar rather than UTC.
type Generator struct {
	Location *time.Location
}

// NextOccurrence returns the event following last, or following the task's
// start date when last is nil. It returns nil when the computed date lies past
// the task's end date. The result is not persisted.
func NextOccurrence(task *model.Task, last *model.TaskEvent) (*model.TaskEvent, error) {
	return Generator{}.Next(task, last)
}

func (g Generator) Next(task *model.Task, last *model.TaskEvent) (*model.TaskEvent, error) {
	if task == nil {
		return nil, apperr.Validation("task is required")
	}
	if task.StartDate.IsZero() {
		return nil, apperr.Validation("task %d has no start date", task.ID)
	}
	if task.FrequencyInterval < 1 {
		return nil, apperr.Validation("task %d has frequency interval %d, must be at least 1", task.ID, task.FrequencyInterval)
	}

	anchor := task.StartDate
	if last != nil {
		anchor = last.ScheduledDate
	}
	loc := g.Location
	if loc == nil {
		loc = anchor.Location()
	}

	next, err := advance(anchor.In(loc), task.Frequency, task.FrequencyInterval)
	if err != nil {
		return nil, err
	}
	if task.Ended(next) {
		return nil, nil
	}

	return &model.TaskEvent{
		TaskID:        task.ID,
		UserID:        task.UserID,
		TaskTitle:     task.Title,
		ScheduledDate: next,
		PointsEarned:  task.PointsReward,
		Status:        model.StatusScheduled,
	}, nil
}

func advance(t time.Time, freq model.Frequency, n int) (time.Time, error) {
	switch freq {
	case model.FrequencyDaily:
		return t.AddDate(0, 0, n), nil
	case model.FrequencyWeekly:
		return t.AddDate(0, 0, 7*n), nil
	case model.FrequencyMonthly:
		return addMonthsClamped(t, n), nil
	case model.FrequencyYearly:
		return addMonthsClamped(t, 12*n), nil
	default:
		return time.Time{}, apperr.Validation("unsupported frequency %s", freq)
	}
}

// addMonthsClamped adds n months keeping the day of month, clamped to the
// last day of the target month (Jan 31 + 1 month = Feb 28/29). time.AddDate
// would normalize the overflow into the following month instead.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + n
	year += total / 12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	target := time.Month(total + 1)
	if last := daysInMonth(target, year); day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(year, target, day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
