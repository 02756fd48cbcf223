package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskward/internal/model"
)

// UserRepository handles CRUD for users and the raw point updates used by the
// ledger.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertFromTelegram finds or creates a user based on TelegramID and refreshes the display name.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		if user.Name != name && name != "" {
			if err := db.Model(&user).Update("name", name).Error; err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{TelegramID: &telegramID, Name: name}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile writes the display fields only; the point balance is left alone.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).
		Updates(map[string]any{"name": user.Name, "photo": user.Photo})
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddPoints increments the balance in a single statement and reports whether
// the user exists.
func (r *UserRepository) AddPoints(ctx context.Context, id uint, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("add points: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SubtractPoints decrements the balance only if it stays non-negative. It
// reports false when the user is missing or the balance is too low.
func (r *UserRepository) SubtractPoints(ctx context.Context, id uint, amount int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ? AND points >= ?", id, amount).
		Update("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("subtract points: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
