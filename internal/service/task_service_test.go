package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskward/internal/apperr"
	"taskward/internal/model"
)

func TestCreateTaskSchedulesFirstEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)

	in := dailyInput("  Walk the dog  ", 7)
	in.Frequency = model.FrequencyWeekly
	in.FrequencyInterval = 2
	task, err := env.tasks.CreateTask(ctx, u.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Walk the dog", task.Title)

	got, err := env.tasks.GetTaskWithEvents(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	ev := got.Events[0]
	assert.Equal(t, u.ID, ev.UserID)
	assert.Equal(t, "Walk the dog", ev.TaskTitle)
	assert.Equal(t, 7, ev.PointsEarned)
	assertSameTime(t, day(14), ev.ScheduledDate)
}

func TestCreateTaskEndingBeforeFirstOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)

	in := dailyInput("One-off", 1)
	end := day0.Add(time.Hour)
	in.EndDate = &end
	task, err := env.tasks.CreateTask(ctx, u.ID, in)
	require.NoError(t, err)

	events, err := env.events.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)

	before := day0.Add(-time.Minute)
	tests := map[string]func(*TaskInput){
		"empty title":         func(in *TaskInput) { in.Title = "   " },
		"missing icon":        func(in *TaskInput) { in.Icon = "" },
		"zero interval":       func(in *TaskInput) { in.FrequencyInterval = 0 },
		"unknown frequency":   func(in *TaskInput) { in.Frequency = model.Frequency(9) },
		"negative points":     func(in *TaskInput) { in.PointsReward = -1 },
		"start in the past":   func(in *TaskInput) { in.StartDate = before },
		"end not after start": func(in *TaskInput) { in.EndDate = &day0 },
		"missing start date":  func(in *TaskInput) { in.StartDate = time.Time{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := dailyInput("Dishes", 1)
			mutate(&in)
			_, err := env.tasks.CreateTask(ctx, u.ID, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err := env.tasks.CreateTask(ctx, 999, dailyInput("Dishes", 1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	tasks, err := env.tasks.ListTasks(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpdateTaskAppliesToLaterEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)
	task, first := env.dailyTask(t, u.ID, 10)

	in := dailyInput("Dishes and pans", 20)
	updated, err := env.tasks.UpdateTask(ctx, task.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 20, updated.PointsReward)

	// The pending event keeps its snapshot of points but shows the new title.
	pending, err := env.events.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, pending.PointsEarned)
	assert.Equal(t, "Dishes and pans", pending.TaskTitle)

	tr, err := env.events.Complete(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, env.balance(t, u.ID))
	assert.Equal(t, 20, tr.Successor.PointsEarned)
}

func TestUpdateTaskEndDateCancelsPendingEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)
	task, first := env.dailyTask(t, u.ID, 10)

	in := dailyInput("Dishes", 10)
	end := day0.Add(2 * time.Hour)
	in.EndDate = &end
	_, err := env.tasks.UpdateTask(ctx, task.ID, in)
	require.NoError(t, err)

	got, err := env.events.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.Equal(t, int64(0), env.scheduledCount(t, task.ID))
}

func TestUpdateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)
	task, _ := env.dailyTask(t, u.ID, 10)

	// Editing later keeps the creation time as the lower bound.
	env.clock.Set(day(5))
	in := dailyInput("Dishes", 10)
	_, err := env.tasks.UpdateTask(ctx, task.ID, in)
	require.NoError(t, err)

	in.StartDate = day0.Add(-time.Hour)
	_, err = env.tasks.UpdateTask(ctx, task.ID, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.tasks.UpdateTask(ctx, 999, dailyInput("Dishes", 1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteTaskCancelsPendingAndKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, 0)
	task, first := env.dailyTask(t, u.ID, 10)

	tr, err := env.events.Complete(ctx, first.ID)
	require.NoError(t, err)
	require.NoError(t, env.tasks.DeleteTask(ctx, task.ID))

	_, err = env.tasks.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	done, err := env.events.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	cancelled, err := env.events.Get(ctx, tr.Successor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	// Cancelled events are terminal.
	_, err = env.events.Complete(ctx, cancelled.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 10, env.balance(t, u.ID))

	assert.ErrorIs(t, env.tasks.DeleteTask(ctx, task.ID), apperr.ErrNotFound)
}
