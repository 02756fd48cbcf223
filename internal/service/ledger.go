package service

import (
	"context"

	"github.com/rs/zerolog"

	"taskward/internal/apperr"
	"taskward/internal/repository"
)

// Ledger owns user point balances. Every change is a single conditional
// UPDATE, so concurrent credits and debits on one user never lose an update
// and a debit can never drive a balance below zero.
type Ledger struct {
	store *repository.Store
	log   zerolog.Logger
}

func NewLedger(store *repository.Store, log zerolog.Logger) *Ledger {
	return &Ledger{store: store, log: log.With().Str("component", "ledger").Logger()}
}

// WithStore returns a ledger that writes through store, typically a store
// bound to an open transaction.
func (l *Ledger) WithStore(store *repository.Store) *Ledger {
	return &Ledger{store: store, log: l.log}
}

// Credit adds amount to the user's balance.
func (l *Ledger) Credit(ctx context.Context, userID uint, amount int) error {
	if amount < 0 {
		return apperr.Validation("credit amount must not be negative, got %d", amount)
	}
	ok, err := l.store.Users.AddPoints(ctx, userID, amount)
	if err != nil {
		return storageErr(l.log, "credit points", err)
	}
	if !ok {
		return apperr.NotFound("user", userID)
	}
	l.log.Debug().Uint("user_id", userID).Int("amount", amount).Msg("points credited")
	return nil
}

// Debit subtracts amount from the user's balance. The balance is left
// unchanged and an insufficient balance error returned when it would go
// negative.
func (l *Ledger) Debit(ctx context.Context, userID uint, amount int) error {
	if amount < 0 {
		return apperr.Validation("debit amount must not be negative, got %d", amount)
	}
	ok, err := l.store.Users.SubtractPoints(ctx, userID, amount)
	if err != nil {
		return storageErr(l.log, "debit points", err)
	}
	if ok {
		l.log.Debug().Uint("user_id", userID).Int("amount", amount).Msg("points debited")
		return nil
	}

	user, err := l.store.Users.FindByID(ctx, userID)
	if err != nil {
		return lookupErr(l.log, "debit points", "user", userID, err)
	}
	return apperr.InsufficientBalance(userID, user.Points, amount)
}

// Balance returns the user's current points.
func (l *Ledger) Balance(ctx context.Context, userID uint) (int, error) {
	user, err := l.store.Users.FindByID(ctx, userID)
	if err != nil {
		return 0, lookupErr(l.log, "read balance", "user", userID, err)
	}
	return user.Points, nil
}
