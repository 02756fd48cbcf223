package model

import "time"

// User owns tasks and rewards. Points is only changed by the ledger.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID *int64 `gorm:"uniqueIndex"`
	Name       string `validate:"required,max=255"`
	Photo      string `validate:"max=255"`
	Points     int    `gorm:"not null;default:0;check:points >= 0" validate:"gte=0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
