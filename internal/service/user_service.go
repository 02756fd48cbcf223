package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"taskward/internal/model"
	"taskward/internal/repository"
)

// UserService manages user profiles. Balances are changed only by the Ledger.
type UserService struct {
	store *repository.Store
	log   zerolog.Logger
}

func NewUserService(store *repository.Store, log zerolog.Logger) *UserService {
	return &UserService{store: store, log: log.With().Str("component", "users").Logger()}
}

func (s *UserService) CreateUser(ctx context.Context, name, photo string) (*model.User, error) {
	user := model.User{Name: strings.TrimSpace(name), Photo: strings.TrimSpace(photo)}
	if err := model.ValidateUser(&user); err != nil {
		return nil, validationErr(err)
	}
	if err := s.store.Users.Create(ctx, &user); err != nil {
		return nil, storageErr(s.log, "create user", err)
	}
	s.log.Info().Uint("user_id", user.ID).Msg("user created")
	return &user, nil
}

// EnsureTelegramUser finds or creates the user behind a Telegram account.
func (s *UserService) EnsureTelegramUser(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "user"
	}
	user, err := s.store.Users.UpsertFromTelegram(ctx, telegramID, name)
	if err != nil {
		return nil, storageErr(s.log, "ensure telegram user", err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(s.log, "get user", "user", userID, err)
	}
	return user, nil
}

// ListUsers returns every user; the daily summary job walks this list.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users.ListAll(ctx)
	if err != nil {
		return nil, storageErr(s.log, "list users", err)
	}
	return users, nil
}

// UpdateProfile changes the display name and photo. The balance is left alone.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, name, photo string) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = strings.TrimSpace(name)
	user.Photo = strings.TrimSpace(photo)
	if err := model.ValidateUser(user); err != nil {
		return nil, validationErr(err)
	}
	if err := s.store.Users.UpdateProfile(ctx, user); err != nil {
		return nil, lookupErr(s.log, "update user", "user", userID, err)
	}
	return user, nil
}

// DeleteUser removes the user with all of their tasks, events and rewards.
func (s *UserService) DeleteUser(ctx context.Context, userID uint) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return lookupErr(s.log, "delete user", "user", userID, err)
		}
		if err := tx.Events.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Tasks.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Rewards.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return tx.Users.Delete(ctx, userID)
	})
	if err != nil {
		return storageErr(s.log, "delete user", err)
	}
	s.log.Info().Uint("user_id", userID).Msg("user deleted")
	return nil
}
