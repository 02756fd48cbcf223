package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskward/internal/model"
)

// RewardRepository handles CRUD for rewards.
type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Create(ctx context.Context, reward *model.Reward) error {
	if err := r.db.WithContext(ctx).Create(reward).Error; err != nil {
		return fmt.Errorf("create reward: %w", err)
	}
	return nil
}

func (r *RewardRepository) FindByID(ctx context.Context, id uint) (*model.Reward, error) {
	var reward model.Reward
	if err := r.db.WithContext(ctx).First(&reward, id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// ListByUser returns open rewards first, cheapest first, then redeemed ones.
func (r *RewardRepository) ListByUser(ctx context.Context, userID uint) ([]model.Reward, error) {
	var rewards []model.Reward
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("date_redeemed IS NOT NULL, points_required ASC, id ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// UpdateDetails rewrites the editable fields; the redemption date is never
// touched here.
func (r *RewardRepository) UpdateDetails(ctx context.Context, reward *model.Reward) error {
	res := r.db.WithContext(ctx).Model(&model.Reward{}).Where("id = ?", reward.ID).
		Updates(map[string]any{
			"icon":            reward.Icon,
			"title":           reward.Title,
			"description":     reward.Description,
			"points_required": reward.PointsRequired,
		})
	if res.Error != nil {
		return fmt.Errorf("update reward: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkRedeemed sets the redemption date if it is still unset. It reports
// false when the reward is missing or already redeemed.
func (r *RewardRepository) MarkRedeemed(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Reward{}).
		Where("id = ? AND date_redeemed IS NULL", id).
		Update("date_redeemed", at.UTC())
	if res.Error != nil {
		return false, fmt.Errorf("redeem reward: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RewardRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Reward{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete reward: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByUser removes all of the user's rewards.
func (r *RewardRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Reward{}).Error; err != nil {
		return fmt.Errorf("delete rewards: %w", err)
	}
	return nil
}
