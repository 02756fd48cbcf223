// Package app wires the storage and services together.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskward/internal/config"
	"taskward/internal/repository"
	"taskward/internal/service"
)

// App holds the services built from one configuration.
type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Location *time.Location
	Clock    service.Clock

	DB    *gorm.DB
	Store *repository.Store

	Ledger  *service.Ledger
	Events  *service.EventService
	Tasks   *service.TaskService
	Users   *service.UserService
	Rewards *service.RewardService
	Summary *service.SummaryService
	Sweeper *service.Sweeper
}

// New opens the database, migrates it and builds every service.
func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore(db)
	clock := service.SystemClock{}
	ledger := service.NewLedger(store, log)
	events := service.NewEventService(store, ledger, service.Generator{Location: loc}, clock, log)

	a := &App{
		Config:   cfg,
		Log:      log,
		Location: loc,
		Clock:    clock,
		DB:       db,
		Store:    store,
		Ledger:   ledger,
		Events:   events,
		Tasks:    service.NewTaskService(store, events, clock, log),
		Users:    service.NewUserService(store, log),
		Rewards:  service.NewRewardService(store, ledger, clock, log),
		Summary:  service.NewSummaryService(store, loc, log),
		Sweeper: service.NewSweeper(store, events, service.SweepConfig{
			Concurrency: cfg.SweepConcurrency,
			MaxCatchUp:  cfg.SweepMaxCatchUp,
		}, log),
	}
	log.Debug().Str("db", cfg.DatabaseURL).Str("tz", loc.String()).Msg("app initialized")
	return a, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	return sqlDB.Close()
}
