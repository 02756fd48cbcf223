package model

import "time"

// TaskEvent is one dated occurrence of a task. PointsEarned is copied from
// the task when the event is generated and never recomputed.
type TaskEvent struct {
	ID            uint        `gorm:"primaryKey"`
	TaskID        uint        `gorm:"index:idx_event_task_date"`
	UserID        uint        `gorm:"index"`
	TaskTitle     string
	ScheduledDate time.Time   `gorm:"index:idx_event_task_date"`
	CompletedDate *time.Time
	PointsEarned  int         `validate:"gte=0"`
	Status        EventStatus `gorm:"index;not null" validate:"status"`
	CreatedAt     time.Time
}

// IsOverdue reports whether a scheduled event has passed its date.
func (e TaskEvent) IsOverdue(now time.Time) bool {
	return e.Status == StatusScheduled && e.ScheduledDate.Before(now)
}
