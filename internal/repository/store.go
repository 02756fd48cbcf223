package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one database handle. A Store
// created inside Transaction is bound to that transaction.
type Store struct {
	db      *gorm.DB
	Users   *UserRepository
	Tasks   *TaskRepository
	Events  *EventRepository
	Rewards *RewardRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		Users:   NewUserRepository(db),
		Tasks:   NewTaskRepository(db),
		Events:  NewEventRepository(db),
		Rewards: NewRewardRepository(db),
	}
}

// Transaction runs fn in a transaction; it commits when fn returns nil and
// rolls back otherwise. Calling Transaction on a Store that is already bound
// to a transaction opens a savepoint, so a failing nested fn only undoes its
// own writes.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
