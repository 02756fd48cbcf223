package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskward/internal/model"
)

// EventRepository handles task events. Dates are stored in UTC so that the
// textual SQLite timestamps compare in chronological order.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *model.TaskEvent) error {
	event.ScheduledDate = event.ScheduledDate.UTC()
	if event.CompletedDate != nil {
		completed := event.CompletedDate.UTC()
		event.CompletedDate = &completed
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (*model.TaskEvent, error) {
	var event model.TaskEvent
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// ListByTask returns the task's events ordered by scheduled date.
func (r *EventRepository) ListByTask(ctx context.Context, taskID uint) ([]model.TaskEvent, error) {
	var events []model.TaskEvent
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("scheduled_date ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) ListByUser(ctx context.Context, userID uint) ([]model.TaskEvent, error) {
	var events []model.TaskEvent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("scheduled_date DESC, id DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListScheduledByUser returns the user's pending events, soonest first.
func (r *EventRepository) ListScheduledByUser(ctx context.Context, userID uint) ([]model.TaskEvent, error) {
	var events []model.TaskEvent
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.StatusScheduled).
		Order("scheduled_date ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListOverdue returns every scheduled event dated strictly before now.
func (r *EventRepository) ListOverdue(ctx context.Context, now time.Time) ([]model.TaskEvent, error) {
	var events []model.TaskEvent
	if err := r.db.WithContext(ctx).Where("status = ? AND scheduled_date < ?", model.StatusScheduled, now.UTC()).
		Order("task_id ASC, scheduled_date ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// NextAfter returns the first event of the task dated after date, or nil.
func (r *EventRepository) NextAfter(ctx context.Context, taskID uint, date time.Time) (*model.TaskEvent, error) {
	return r.first(ctx, r.db.Where("task_id = ? AND scheduled_date > ?", taskID, date.UTC()))
}

// LatestExcept returns the task's latest event other than id, or nil.
func (r *EventRepository) LatestExcept(ctx context.Context, taskID, id uint) (*model.TaskEvent, error) {
	var event model.TaskEvent
	err := r.db.WithContext(ctx).Where("task_id = ? AND id <> ?", taskID, id).
		Order("scheduled_date DESC, id DESC").
		First(&event).Error
	switch {
	case err == nil:
		return &event, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find event: %w", err)
	}
}

// ScheduledForTask returns the task's pending event, or nil.
func (r *EventRepository) ScheduledForTask(ctx context.Context, taskID uint) (*model.TaskEvent, error) {
	return r.first(ctx, r.db.Where("task_id = ? AND status = ?", taskID, model.StatusScheduled))
}

func (r *EventRepository) CountScheduledForTask(ctx context.Context, taskID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.TaskEvent{}).
		Where("task_id = ? AND status = ?", taskID, model.StatusScheduled).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count scheduled events: %w", err)
	}
	return n, nil
}

func (r *EventRepository) first(ctx context.Context, q *gorm.DB) (*model.TaskEvent, error) {
	var event model.TaskEvent
	err := q.WithContext(ctx).Order("scheduled_date ASC, id ASC").First(&event).Error
	switch {
	case err == nil:
		return &event, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find event: %w", err)
	}
}

// MarkCompleted moves a scheduled event to completed. It reports false when
// the event is missing or not scheduled.
func (r *EventRepository) MarkCompleted(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.transition(ctx, r.db.Where("id = ? AND status = ?", id, model.StatusScheduled), map[string]any{
		"status":         model.StatusCompleted,
		"completed_date": at.UTC(),
	})
}

// MarkReopened moves a completed event back to scheduled and clears its
// completion date.
func (r *EventRepository) MarkReopened(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, r.db.Where("id = ? AND status = ?", id, model.StatusCompleted), map[string]any{
		"status":         model.StatusScheduled,
		"completed_date": nil,
	})
}

// MarkExpired moves a scheduled event dated before now to expired.
func (r *EventRepository) MarkExpired(ctx context.Context, id uint, now time.Time) (bool, error) {
	return r.transition(ctx, r.db.Where("id = ? AND status = ? AND scheduled_date < ?", id, model.StatusScheduled, now.UTC()), map[string]any{
		"status": model.StatusExpired,
	})
}

// CancelScheduledForTask cancels the task's pending events and returns how
// many were changed.
func (r *EventRepository) CancelScheduledForTask(ctx context.Context, taskID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.TaskEvent{}).
		Where("task_id = ? AND status = ?", taskID, model.StatusScheduled).
		Update("status", model.StatusCancelled)
	if res.Error != nil {
		return 0, fmt.Errorf("cancel events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateDetails rewrites the editable fields of an event without touching
// its status or completion date.
func (r *EventRepository) UpdateDetails(ctx context.Context, event *model.TaskEvent) error {
	res := r.db.WithContext(ctx).Model(&model.TaskEvent{}).Where("id = ?", event.ID).
		Updates(map[string]any{
			"scheduled_date": event.ScheduledDate.UTC(),
			"task_title":     event.TaskTitle,
		})
	if res.Error != nil {
		return fmt.Errorf("update event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.TaskEvent{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *EventRepository) transition(ctx context.Context, q *gorm.DB, updates map[string]any) (bool, error) {
	res := q.WithContext(ctx).Model(&model.TaskEvent{}).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update event status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteByUser removes all of the user's events.
func (r *EventRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.TaskEvent{}).Error; err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}
