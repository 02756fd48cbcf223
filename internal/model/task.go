package model

import "time"

// Task is a recurring task definition. Its events are generated one at a time
// from the current definition.
type Task struct {
	ID                uint      `gorm:"primaryKey"`
	UserID            uint      `gorm:"index" validate:"required"`
	Icon              string    `validate:"required,max=64"`
	Title             string    `validate:"required,max=255"`
	Description       string    `validate:"max=255"`
	Frequency         Frequency `gorm:"not null" validate:"frequency"`
	FrequencyInterval int       `gorm:"not null;default:1" validate:"gte=1"`
	StartDate         time.Time `validate:"required"`
	EndDate           *time.Time
	PointsReward      int `validate:"gte=0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Ended reports whether date lies past the end of the series.
func (t Task) Ended(date time.Time) bool {
	return t.EndDate != nil && date.After(*t.EndDate)
}
