package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"taskward/internal/model"
	"taskward/internal/repository"
)

// Sweep defaults.
const (
	DefaultSweepConcurrency = 4
	DefaultSweepMaxCatchUp  = 366
)

// SweepConfig tunes a Sweeper.
type SweepConfig struct {
	// Concurrency bounds how many tasks are processed at once.
	Concurrency int
	// MaxCatchUp bounds how many successive overdue events of one task are
	// expired in a single sweep.
	MaxCatchUp int
}

// SweepFailure records an event the sweep could not expire.
type SweepFailure struct {
	EventID uint
	TaskID  uint
	Err     error
}

// SweepReport summarizes one sweep run.
type SweepReport struct {
	RunID     string
	Now       time.Time
	Expired   []model.TaskEvent
	Generated []model.TaskEvent
	Failures  []SweepFailure
}

// Err joins the per-event failures, or returns nil when there were none.
func (r *SweepReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("event %d: %w", f.EventID, f.Err))
	}
	return errors.Join(errs...)
}

// Sweeper expires overdue scheduled events. It runs only when called; it
// owns no timers.
type Sweeper struct {
	store  *repository.Store
	events *EventService
	cfg    SweepConfig
	log    zerolog.Logger
}

func NewSweeper(store *repository.Store, events *EventService, cfg SweepConfig, log zerolog.Logger) *Sweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSweepConcurrency
	}
	if cfg.MaxCatchUp <= 0 {
		cfg.MaxCatchUp = DefaultSweepMaxCatchUp
	}
	return &Sweeper{
		store:  store,
		events: events,
		cfg:    cfg,
		log:    log.With().Str("component", "sweep").Logger(),
	}
}

// Sweep expires every scheduled event dated before now. Tasks are processed
// independently; a failure on one event is recorded in the report and does
// not stop the others. The returned error is non-nil only when the overdue
// events could not be listed.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	report := &SweepReport{RunID: uuid.NewString(), Now: now}
	log := s.log.With().Str("run_id", report.RunID).Logger()

	overdue, err := s.store.Events.ListOverdue(ctx, now)
	if err != nil {
		return nil, storageErr(log, "list overdue events", err)
	}

	byTask := make(map[uint][]model.TaskEvent)
	var order []uint
	for _, ev := range overdue {
		if _, ok := byTask[ev.TaskID]; !ok {
			order = append(order, ev.TaskID)
		}
		byTask[ev.TaskID] = append(byTask[ev.TaskID], ev)
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, taskID := range order {
		pending := byTask[taskID]
		g.Go(func() error {
			expired, generated, failures := s.sweepTask(gCtx, pending, now)
			mu.Lock()
			report.Expired = append(report.Expired, expired...)
			report.Generated = append(report.Generated, generated...)
			report.Failures = append(report.Failures, failures...)
			mu.Unlock()
			// Errors stay in the report so other tasks keep going.
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range report.Failures {
		log.Warn().Err(f.Err).Uint("event_id", f.EventID).Uint("task_id", f.TaskID).Msg("event not expired")
	}
	log.Info().
		Int("overdue", len(overdue)).
		Int("expired", len(report.Expired)).
		Int("generated", len(report.Generated)).
		Int("failed", len(report.Failures)).
		Msg("sweep finished")
	return report, nil
}

// sweepTask expires the task's overdue events in date order and then keeps
// expiring generated successors that are themselves overdue.
func (s *Sweeper) sweepTask(ctx context.Context, pending []model.TaskEvent, now time.Time) (expired, generated []model.TaskEvent, failures []SweepFailure) {
	var last *model.TaskEvent
	expire := func(ev model.TaskEvent) bool {
		if err := ctx.Err(); err != nil {
			failures = append(failures, SweepFailure{EventID: ev.ID, TaskID: ev.TaskID, Err: err})
			return false
		}
		tr, err := s.events.Expire(ctx, ev.ID, now)
		if err != nil {
			failures = append(failures, SweepFailure{EventID: ev.ID, TaskID: ev.TaskID, Err: err})
			return false
		}
		expired = append(expired, *tr.Event)
		if tr.SuccessorErr != nil {
			failures = append(failures, SweepFailure{EventID: ev.ID, TaskID: ev.TaskID, Err: tr.SuccessorErr})
		}
		last = tr.Successor
		if last != nil {
			generated = append(generated, *last)
		}
		return true
	}

	for _, ev := range pending {
		expire(ev)
	}
	for n := 0; last != nil && last.IsOverdue(now) && n < s.cfg.MaxCatchUp; n++ {
		if !expire(*last) {
			break
		}
	}
	return expired, generated, failures
}
