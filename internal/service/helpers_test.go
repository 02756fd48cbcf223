package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskward/internal/model"
	"taskward/internal/repository"
)

// day0 is the creation time of every test task.
var day0 = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testEnv struct {
	db      *gorm.DB
	store   *repository.Store
	clock   *fixedClock
	ledger  *Ledger
	events  *EventService
	tasks   *TaskService
	users   *UserService
	rewards *RewardService
	summary *SummaryService
	sweeper *Sweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithSweep(t, SweepConfig{})
}

func newTestEnvWithSweep(t *testing.T, cfg SweepConfig) *testEnv {
	t.Helper()
	db, err := repository.NewDB(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zerolog.Nop()
	store := repository.NewStore(db)
	clock := &fixedClock{now: day0}
	ledger := NewLedger(store, log)
	events := NewEventService(store, ledger, Generator{Location: time.UTC}, clock, log)
	return &testEnv{
		db:      db,
		store:   store,
		clock:   clock,
		ledger:  ledger,
		events:  events,
		tasks:   NewTaskService(store, events, clock, log),
		users:   NewUserService(store, log),
		rewards: NewRewardService(store, ledger, clock, log),
		summary: NewSummaryService(store, time.UTC, log),
		sweeper: NewSweeper(store, events, cfg, log),
	}
}

// user creates a user holding points.
func (e *testEnv) user(t *testing.T, points int) *model.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), "alice", "")
	require.NoError(t, err)
	if points > 0 {
		require.NoError(t, e.ledger.Credit(context.Background(), u.ID, points))
		u.Points = points
	}
	return u
}

func dailyInput(title string, points int) TaskInput {
	return TaskInput{
		Icon:              "🧹",
		Title:             title,
		Frequency:         model.FrequencyDaily,
		FrequencyInterval: 1,
		StartDate:         day0,
		PointsReward:      points,
	}
}

// dailyTask creates a daily task starting at day0 and returns it with its
// first event, scheduled for day(1).
func (e *testEnv) dailyTask(t *testing.T, userID uint, points int) (*model.Task, *model.TaskEvent) {
	t.Helper()
	task, err := e.tasks.CreateTask(context.Background(), userID, dailyInput("Dishes", points))
	require.NoError(t, err)
	pending, err := e.store.Events.ScheduledForTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	return task, pending
}

func (e *testEnv) balance(t *testing.T, userID uint) int {
	t.Helper()
	points, err := e.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return points
}

func (e *testEnv) scheduledCount(t *testing.T, taskID uint) int64 {
	t.Helper()
	n, err := e.store.Events.CountScheduledForTask(context.Background(), taskID)
	require.NoError(t, err)
	return n
}

func assertSameTime(t *testing.T, want, got time.Time) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}
