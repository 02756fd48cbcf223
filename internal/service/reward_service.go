package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"taskward/internal/apperr"
	"taskward/internal/model"
	"taskward/internal/repository"
)

// RewardInput represents data required to create or edit a reward.
type RewardInput struct {
	Icon           string
	Title          string
	Description    string
	PointsRequired int
}

// RewardService manages rewards and their redemption.
type RewardService struct {
	store  *repository.Store
	ledger *Ledger
	clock  Clock
	log    zerolog.Logger
}

func NewRewardService(store *repository.Store, ledger *Ledger, clock Clock, log zerolog.Logger) *RewardService {
	return &RewardService{
		store:  store,
		ledger: ledger,
		clock:  clock,
		log:    log.With().Str("component", "rewards").Logger(),
	}
}

// Redeem stamps the reward as redeemed and debits its price from the owner.
// Redemption is one-way; when the debit fails nothing is kept.
func (s *RewardService) Redeem(ctx context.Context, rewardID uint) (*model.Reward, error) {
	var redeemed *model.Reward
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		reward, err := tx.Rewards.FindByID(ctx, rewardID)
		if err != nil {
			return lookupErr(s.log, "redeem reward", "reward", rewardID, err)
		}
		if reward.IsRedeemed() {
			return apperr.AlreadyRedeemed()
		}
		ok, err := tx.Rewards.MarkRedeemed(ctx, rewardID, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.AlreadyRedeemed()
		}
		if err := s.ledger.WithStore(tx).Debit(ctx, reward.UserID, reward.PointsRequired); err != nil {
			return err
		}
		redeemed, err = tx.Rewards.FindByID(ctx, rewardID)
		return err
	})
	if err != nil {
		return nil, storageErr(s.log, "redeem reward", err)
	}

	s.log.Info().
		Uint("reward_id", redeemed.ID).
		Uint("user_id", redeemed.UserID).
		Int("points", redeemed.PointsRequired).
		Msg("reward redeemed")
	return redeemed, nil
}

func (s *RewardService) Create(ctx context.Context, userID uint, input RewardInput) (*model.Reward, error) {
	reward := model.Reward{
		UserID:         userID,
		Icon:           strings.TrimSpace(input.Icon),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		PointsRequired: input.PointsRequired,
	}
	if err := model.ValidateReward(&reward, s.clock.Now()); err != nil {
		return nil, validationErr(err)
	}
	if _, err := s.store.Users.FindByID(ctx, userID); err != nil {
		return nil, lookupErr(s.log, "create reward", "user", userID, err)
	}
	if err := s.store.Rewards.Create(ctx, &reward); err != nil {
		return nil, storageErr(s.log, "create reward", err)
	}
	return &reward, nil
}

func (s *RewardService) Get(ctx context.Context, rewardID uint) (*model.Reward, error) {
	reward, err := s.store.Rewards.FindByID(ctx, rewardID)
	if err != nil {
		return nil, lookupErr(s.log, "get reward", "reward", rewardID, err)
	}
	return reward, nil
}

func (s *RewardService) ListByUser(ctx context.Context, userID uint) ([]model.Reward, error) {
	rewards, err := s.store.Rewards.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "list rewards", err)
	}
	return rewards, nil
}

// Update edits a reward's details. A redeemed reward cannot be changed.
func (s *RewardService) Update(ctx context.Context, rewardID uint, input RewardInput) (*model.Reward, error) {
	reward, err := s.Get(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.IsRedeemed() {
		return nil, apperr.AlreadyRedeemed()
	}
	reward.Icon = strings.TrimSpace(input.Icon)
	reward.Title = strings.TrimSpace(input.Title)
	reward.Description = strings.TrimSpace(input.Description)
	reward.PointsRequired = input.PointsRequired
	if err := model.ValidateReward(reward, s.clock.Now()); err != nil {
		return nil, validationErr(err)
	}
	if err := s.store.Rewards.UpdateDetails(ctx, reward); err != nil {
		return nil, lookupErr(s.log, "update reward", "reward", rewardID, err)
	}
	return reward, nil
}

func (s *RewardService) Delete(ctx context.Context, rewardID uint) error {
	if err := s.store.Rewards.Delete(ctx, rewardID); err != nil {
		return lookupErr(s.log, "delete reward", "reward", rewardID, err)
	}
	return nil
}
