package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskward/internal/apperr"
)

func TestRedeem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 50)
	reward, err := env.rewards.Create(ctx, u.ID, RewardInput{Icon: "🍕", Title: "Pizza", PointsRequired: 30})
	require.NoError(t, err)

	redeemed, err := env.rewards.Redeem(ctx, reward.ID)
	require.NoError(t, err)
	require.NotNil(t, redeemed.DateRedeemed)
	assertSameTime(t, day0, *redeemed.DateRedeemed)
	assert.Equal(t, 20, env.balance(t, u.ID))

	_, err = env.rewards.Redeem(ctx, reward.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyRedeemed)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 20, env.balance(t, u.ID))
}

func TestRedeemWithoutEnoughPointsChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 10)
	reward, err := env.rewards.Create(ctx, u.ID, RewardInput{Icon: "🎮", Title: "Game", PointsRequired: 11})
	require.NoError(t, err)

	_, err = env.rewards.Redeem(ctx, reward.ID)
	require.ErrorIs(t, err, apperr.ErrInsufficientBalance)

	got, err := env.rewards.Get(ctx, reward.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRedeemed())
	assert.Equal(t, 10, env.balance(t, u.ID))

	_, err = env.rewards.Redeem(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRewardCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 100)

	_, err := env.rewards.Create(ctx, u.ID, RewardInput{Icon: "🎁", Title: "Free", PointsRequired: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = env.rewards.Create(ctx, 999, RewardInput{Icon: "🎁", Title: "Gift", PointsRequired: 5})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cheap, err := env.rewards.Create(ctx, u.ID, RewardInput{Icon: "🍫", Title: "Chocolate", PointsRequired: 5})
	require.NoError(t, err)
	dear, err := env.rewards.Create(ctx, u.ID, RewardInput{Icon: "✈️", Title: "Trip", PointsRequired: 90})
	require.NoError(t, err)

	updated, err := env.rewards.Update(ctx, dear.ID, RewardInput{Icon: "✈️", Title: "Weekend trip", PointsRequired: 80})
	require.NoError(t, err)
	assert.Equal(t, "Weekend trip", updated.Title)

	_, err = env.rewards.Redeem(ctx, cheap.ID)
	require.NoError(t, err)
	_, err = env.rewards.Update(ctx, cheap.ID, RewardInput{Icon: "🍫", Title: "More chocolate", PointsRequired: 6})
	assert.ErrorIs(t, err, apperr.ErrAlreadyRedeemed)

	list, err := env.rewards.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, dear.ID, list[0].ID, "open rewards come first")

	require.NoError(t, env.rewards.Delete(ctx, dear.ID))
	assert.ErrorIs(t, env.rewards.Delete(ctx, dear.ID), apperr.ErrNotFound)
}
