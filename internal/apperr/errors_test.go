package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("complete: %w", InvalidTransition("event %d is %s", 3, "expired"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrAlreadyRedeemed)
	assert.NotErrorIs(t, err, ErrValidation)

	redeemed := AlreadyRedeemed()
	assert.ErrorIs(t, redeemed, ErrAlreadyRedeemed)
	assert.ErrorIs(t, redeemed, ErrInvalidTransition)

	assert.ErrorIs(t, NotFound("task", 9), ErrNotFound)
	assert.ErrorIs(t, InsufficientBalance(1, 2, 3), ErrInsufficientBalance)
	assert.ErrorIs(t, Validation("bad"), ErrValidation)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "not_found: task 9 not found", NotFound("task", 9).Error())
	assert.Equal(t, "insufficient_balance: user 1 has 2 points, 3 required", InsufficientBalance(1, 2, 3).Error())
	assert.Equal(t, "validation", (&Error{Kind: KindValidation}).Error())
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Storage("complete event", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "disk")
}

func TestKindOfAndClassify(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("user", 1))))
	assert.Equal(t, KindStorage, KindOf(errors.New("plain")))

	assert.NoError(t, Classify("op", nil))

	classified := Validation("bad input")
	assert.Same(t, classified, Classify("op", classified))

	plain := errors.New("plain")
	got := Classify("load task", plain)
	assert.ErrorIs(t, got, ErrStorage)
	assert.ErrorIs(t, got, plain)
}
