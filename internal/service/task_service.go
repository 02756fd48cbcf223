package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"taskward/internal/model"
	"taskward/internal/repository"
)

// TaskInput represents data required to create or edit a task.
type TaskInput struct {
	Icon              string
	Title             string
	Description       string
	Frequency         model.Frequency
	FrequencyInterval int
	StartDate         time.Time
	EndDate           *time.Time
	PointsReward      int
}

// TaskWithEvents is a task together with its event history.
type TaskWithEvents struct {
	Task   *model.Task
	Events []model.TaskEvent
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store  *repository.Store
	events *EventService
	clock  Clock
	log    zerolog.Logger
}

func NewTaskService(store *repository.Store, events *EventService, clock Clock, log zerolog.Logger) *TaskService {
	return &TaskService{
		store:  store,
		events: events,
		clock:  clock,
		log:    log.With().Str("component", "tasks").Logger(),
	}
}

// CreateTask stores a task and its first event together. A task whose series
// ends before the first occurrence is stored without events.
func (s *TaskService) CreateTask(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	now := s.clock.Now()
	task := model.Task{UserID: userID, CreatedAt: now}
	input.apply(&task)
	if err := model.ValidateTask(&task, now); err != nil {
		return nil, validationErr(err)
	}
	task.StartDate = task.StartDate.UTC()
	if task.EndDate != nil {
		end := task.EndDate.UTC()
		task.EndDate = &end
	}

	var first *model.TaskEvent
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.FindByID(ctx, userID); err != nil {
			return lookupErr(s.log, "create task", "user", userID, err)
		}
		if err := tx.Tasks.Create(ctx, &task); err != nil {
			return err
		}
		// The new id is not visible to anyone else until commit, so the
		// task lock is not needed here.
		next, err := s.events.gen.Next(&task, nil)
		if err != nil || next == nil {
			return err
		}
		if err := tx.Events.Create(ctx, next); err != nil {
			return err
		}
		first = next
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "create task", err)
	}

	e := s.log.Info().Uint("task_id", task.ID).Uint("user_id", userID).Str("frequency", task.Frequency.String())
	if first != nil {
		e = e.Uint("event_id", first.ID).Time("scheduled_date", first.ScheduledDate)
	}
	e.Msg("task created")
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID uint) (*model.Task, error) {
	task, err := s.store.Tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(s.log, "get task", "task", taskID, err)
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID uint) ([]model.Task, error) {
	tasks, err := s.store.Tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTaskWithEvents(ctx context.Context, taskID uint) (*TaskWithEvents, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &TaskWithEvents{Task: task, Events: events}, nil
}

// UpdateTask rewrites a task definition. Later events follow the new
// definition; the pending event keeps its date and points but takes the new
// title, and is cancelled when the new end date excludes it.
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint, input TaskInput) (*model.Task, error) {
	unlock := s.events.lockTask(taskID)
	defer unlock()

	var updated *model.Task
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		task, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return lookupErr(s.log, "update task", "task", taskID, err)
		}
		input.apply(task)
		if err := model.ValidateTask(task, task.CreatedAt); err != nil {
			return validationErr(err)
		}
		task.StartDate = task.StartDate.UTC()
		if task.EndDate != nil {
			end := task.EndDate.UTC()
			task.EndDate = &end
		}
		if err := tx.Tasks.Update(ctx, task); err != nil {
			return err
		}

		pending, err := tx.Events.ScheduledForTask(ctx, taskID)
		if err != nil || pending == nil {
			updated = task
			return err
		}
		if task.Ended(pending.ScheduledDate) {
			if _, err := tx.Events.CancelScheduledForTask(ctx, taskID); err != nil {
				return err
			}
		} else if pending.TaskTitle != task.Title {
			pending.TaskTitle = task.Title
			if err := tx.Events.UpdateDetails(ctx, pending); err != nil {
				return err
			}
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "update task", err)
	}

	s.log.Info().Uint("task_id", taskID).Msg("task updated")
	return updated, nil
}

// DeleteTask cancels the task's pending event and removes the definition.
// Completed and expired events stay as history.
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint) error {
	unlock := s.events.lockTask(taskID)
	defer unlock()

	var cancelled int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Tasks.FindByID(ctx, taskID); err != nil {
			return lookupErr(s.log, "delete task", "task", taskID, err)
		}
		n, err := tx.Events.CancelScheduledForTask(ctx, taskID)
		if err != nil {
			return err
		}
		cancelled = n
		return tx.Tasks.Delete(ctx, taskID)
	})
	if err != nil {
		return storageErr(s.log, "delete task", err)
	}

	s.log.Info().Uint("task_id", taskID).Int64("cancelled", cancelled).Msg("task deleted")
	return nil
}

func (in TaskInput) apply(task *model.Task) {
	task.Icon = strings.TrimSpace(in.Icon)
	task.Title = strings.TrimSpace(in.Title)
	task.Description = strings.TrimSpace(in.Description)
	task.Frequency = in.Frequency
	task.FrequencyInterval = in.FrequencyInterval
	task.StartDate = in.StartDate
	task.EndDate = in.EndDate
	task.PointsReward = in.PointsReward
}
