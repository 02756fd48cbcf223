package model

import "time"

// Reward can be bought once with points.
type Reward struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         uint   `gorm:"index" validate:"required"`
	Icon           string `validate:"required,max=64"`
	Title          string `validate:"required,max=255"`
	Description    string `validate:"max=255"`
	PointsRequired int    `validate:"gt=0"`
	DateRedeemed   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r Reward) IsRedeemed() bool {
	return r.DateRedeemed != nil
}
