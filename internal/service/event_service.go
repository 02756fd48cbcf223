package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskward/internal/apperr"
	"taskward/internal/model"
	"taskward/internal/repository"
)

// Transition is the outcome of a lifecycle operation.
type Transition struct {
	// Event is the event after the transition.
	Event *model.TaskEvent
	// Successor is the event generated by a completion or expiry, nil when
	// the series ended or generation failed.
	Successor *model.TaskEvent
	// SuccessorErr reports a failed successor generation. The transition
	// itself is committed regardless.
	SuccessorErr error
	// Retracted is the successor deleted by a revert.
	Retracted *model.TaskEvent
}

// EventService drives task events through their lifecycle:
//
//	scheduled -> completed   Complete (credits PointsEarned)
//	completed -> scheduled   Revert   (debits PointsEarned, retracts the successor)
//	scheduled -> expired     Expire   (no points)
//	scheduled -> cancelled   task deletion
//
// Each transition moves the event, the owner's balance and the successor in
// one transaction. Transitions of one task are serialized.
type EventService struct {
	store     *repository.Store
	ledger    *Ledger
	gen       Generator
	clock     Clock
	taskLocks *keyedMutex
	log       zerolog.Logger
}

func NewEventService(store *repository.Store, ledger *Ledger, gen Generator, clock Clock, log zerolog.Logger) *EventService {
	return &EventService{
		store:     store,
		ledger:    ledger,
		gen:       gen,
		clock:     clock,
		taskLocks: newKeyedMutex(),
		log:       log.With().Str("component", "events").Logger(),
	}
}

// Complete marks a scheduled event completed, credits its points to the
// owner and generates the next event of the task.
func (s *EventService) Complete(ctx context.Context, eventID uint) (*Transition, error) {
	event, err := s.load(ctx, eventID, "complete event")
	if err != nil {
		return nil, err
	}
	unlock := s.taskLocks.Lock(event.TaskID)
	defer unlock()

	now := s.clock.Now()
	var tr *Transition
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Events.MarkCompleted(ctx, eventID, now)
		if err != nil {
			return err
		}
		if !ok {
			return s.refused(ctx, tx, eventID, "complete", model.StatusScheduled)
		}
		current, err := tx.Events.FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if err := s.ledger.WithStore(tx).Credit(ctx, current.UserID, current.PointsEarned); err != nil {
			return err
		}
		tr = &Transition{Event: current}
		tr.Successor, tr.SuccessorErr = s.generateSuccessor(ctx, tx, current)
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "complete event", err)
	}

	s.logTransition("event completed", tr)
	return tr, nil
}

// Revert reopens a completed event, takes its points back and deletes the
// successor that the completion generated. It fails with an insufficient
// balance error when the owner already spent the points.
func (s *EventService) Revert(ctx context.Context, eventID uint) (*Transition, error) {
	event, err := s.load(ctx, eventID, "revert event")
	if err != nil {
		return nil, err
	}
	unlock := s.taskLocks.Lock(event.TaskID)
	defer unlock()

	var tr *Transition
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Events.MarkReopened(ctx, eventID)
		if err != nil {
			return err
		}
		if !ok {
			return s.refused(ctx, tx, eventID, "revert", model.StatusCompleted)
		}
		current, err := tx.Events.FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if _, err := tx.Tasks.FindByID(ctx, current.TaskID); errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.InvalidTransition("event %d cannot be reverted: task %d was deleted", eventID, current.TaskID)
		} else if err != nil {
			return err
		}

		successor, err := tx.Events.NextAfter(ctx, current.TaskID, current.ScheduledDate)
		if err != nil {
			return err
		}
		// Reopening next to a completed or expired successor would leave two
		// pending events for the task once the successor's own follower exists.
		if successor != nil && successor.Status != model.StatusScheduled {
			return apperr.InvalidTransition("event %d cannot be reverted: a later event of task %d is %s",
				eventID, current.TaskID, successor.Status)
		}

		if err := s.ledger.WithStore(tx).Debit(ctx, current.UserID, current.PointsEarned); err != nil {
			return err
		}

		tr = &Transition{Event: current}
		if successor != nil {
			if err := tx.Events.Delete(ctx, successor.ID); err != nil {
				return err
			}
			tr.Retracted = successor
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "revert event", err)
	}

	s.logTransition("event reverted", tr)
	return tr, nil
}

// Expire marks a scheduled event whose date is before now as expired and
// generates the next event. No points are credited.
func (s *EventService) Expire(ctx context.Context, eventID uint, now time.Time) (*Transition, error) {
	event, err := s.load(ctx, eventID, "expire event")
	if err != nil {
		return nil, err
	}
	unlock := s.taskLocks.Lock(event.TaskID)
	defer unlock()

	var tr *Transition
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Events.MarkExpired(ctx, eventID, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := tx.Events.FindByID(ctx, eventID)
			if err != nil {
				return lookupErr(s.log, "expire event", "event", eventID, err)
			}
			if current.Status == model.StatusScheduled {
				return apperr.InvalidTransition("event %d is not overdue until %s",
					eventID, current.ScheduledDate.Format(time.RFC3339))
			}
			return apperr.InvalidTransition("cannot expire event %d: status is %s, want %s",
				eventID, current.Status, model.StatusScheduled)
		}
		current, err := tx.Events.FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		tr = &Transition{Event: current}
		tr.Successor, tr.SuccessorErr = s.generateSuccessor(ctx, tx, current)
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "expire event", err)
	}

	s.logTransition("event expired", tr)
	return tr, nil
}

// Reschedule moves the task's pending event to date. The new date must stay
// after every earlier event of the task and inside the series.
func (s *EventService) Reschedule(ctx context.Context, eventID uint, date time.Time) (*model.TaskEvent, error) {
	event, err := s.load(ctx, eventID, "reschedule event")
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, apperr.Validation("scheduled date is required")
	}
	unlock := s.taskLocks.Lock(event.TaskID)
	defer unlock()

	var moved *model.TaskEvent
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Events.FindByID(ctx, eventID)
		if err != nil {
			return lookupErr(s.log, "reschedule event", "event", eventID, err)
		}
		if current.Status != model.StatusScheduled {
			return apperr.InvalidTransition("cannot reschedule event %d: status is %s, want %s",
				eventID, current.Status, model.StatusScheduled)
		}
		prev, err := tx.Events.LatestExcept(ctx, current.TaskID, current.ID)
		if err != nil {
			return err
		}
		if prev != nil && !date.After(prev.ScheduledDate) {
			return apperr.Validation("scheduled date must be after %s, the date of event %d",
				prev.ScheduledDate.Format(time.RFC3339), prev.ID)
		}
		task, err := tx.Tasks.FindByID(ctx, current.TaskID)
		if err != nil {
			return lookupErr(s.log, "reschedule event", "task", current.TaskID, err)
		}
		if task.Ended(date) {
			return apperr.Validation("scheduled date must not be after the task end date")
		}
		current.ScheduledDate = date
		if err := tx.Events.UpdateDetails(ctx, current); err != nil {
			return err
		}
		moved = current
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "reschedule event", err)
	}

	s.log.Info().Uint("event_id", eventID).Time("scheduled_date", moved.ScheduledDate).Msg("event rescheduled")
	return moved, nil
}

// Delete removes an expired or cancelled event from the history. Scheduled
// and completed events are bound to the series and the ledger and cannot be
// deleted directly.
func (s *EventService) Delete(ctx context.Context, eventID uint) error {
	event, err := s.load(ctx, eventID, "delete event")
	if err != nil {
		return err
	}
	if !event.Status.Terminal() {
		return apperr.InvalidTransition("cannot delete event %d: status is %s", eventID, event.Status)
	}
	if err := s.store.Events.Delete(ctx, eventID); err != nil {
		return lookupErr(s.log, "delete event", "event", eventID, err)
	}
	return nil
}

func (s *EventService) Get(ctx context.Context, eventID uint) (*model.TaskEvent, error) {
	return s.load(ctx, eventID, "get event")
}

// ListByTask returns the task's events ordered by scheduled date.
func (s *EventService) ListByTask(ctx context.Context, taskID uint) ([]model.TaskEvent, error) {
	events, err := s.store.Events.ListByTask(ctx, taskID)
	if err != nil {
		return nil, storageErr(s.log, "list task events", err)
	}
	return events, nil
}

// ListByUser returns the user's events, newest first.
func (s *EventService) ListByUser(ctx context.Context, userID uint) ([]model.TaskEvent, error) {
	events, err := s.store.Events.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "list user events", err)
	}
	return events, nil
}

// ListScheduled returns the user's pending events, soonest first.
func (s *EventService) ListScheduled(ctx context.Context, userID uint) ([]model.TaskEvent, error) {
	events, err := s.store.Events.ListScheduledByUser(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "list scheduled events", err)
	}
	return events, nil
}

// lockTask serializes event generation for one task across services.
func (s *EventService) lockTask(taskID uint) func() {
	return s.taskLocks.Lock(taskID)
}

// generateSuccessor creates the event following prev inside a savepoint. A
// failure rolls back the savepoint only; the caller's transition stands.
func (s *EventService) generateSuccessor(ctx context.Context, tx *repository.Store, prev *model.TaskEvent) (*model.TaskEvent, error) {
	var next *model.TaskEvent
	err := tx.Transaction(ctx, func(sp *repository.Store) error {
		task, err := sp.Tasks.FindByID(ctx, prev.TaskID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deleted task: the series is over.
			return nil
		}
		if err != nil {
			return err
		}
		candidate, err := s.gen.Next(task, prev)
		if err != nil || candidate == nil {
			return err
		}
		pending, err := sp.Events.ScheduledForTask(ctx, task.ID)
		if err != nil {
			return err
		}
		if pending != nil {
			return apperr.InvalidTransition("task %d already has scheduled event %d", task.ID, pending.ID)
		}
		if err := sp.Events.Create(ctx, candidate); err != nil {
			return err
		}
		next = candidate
		return nil
	})
	if err != nil {
		err = storageErr(s.log, "generate successor", err)
		s.log.Warn().Err(err).Uint("event_id", prev.ID).Uint("task_id", prev.TaskID).Msg("successor not generated")
		return nil, err
	}
	return next, nil
}

func (s *EventService) load(ctx context.Context, eventID uint, op string) (*model.TaskEvent, error) {
	event, err := s.store.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, lookupErr(s.log, op, "event", eventID, err)
	}
	return event, nil
}

// refused explains why a conditional status update matched no row.
func (s *EventService) refused(ctx context.Context, tx *repository.Store, eventID uint, action string, want model.EventStatus) error {
	current, err := tx.Events.FindByID(ctx, eventID)
	if err != nil {
		return lookupErr(s.log, action+" event", "event", eventID, err)
	}
	return apperr.InvalidTransition("cannot %s event %d: status is %s, want %s", action, eventID, current.Status, want)
}

func (s *EventService) logTransition(msg string, tr *Transition) {
	e := s.log.Info().
		Uint("event_id", tr.Event.ID).
		Uint("task_id", tr.Event.TaskID).
		Uint("user_id", tr.Event.UserID).
		Int("points", tr.Event.PointsEarned)
	if tr.Successor != nil {
		e = e.Uint("successor_id", tr.Successor.ID).Time("successor_date", tr.Successor.ScheduledDate)
	}
	if tr.Retracted != nil {
		e = e.Uint("retracted_id", tr.Retracted.ID)
	}
	e.Msg(msg)
}
