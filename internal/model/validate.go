package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("frequency", func(fl validator.FieldLevel) bool {
		f, ok := fl.Field().Interface().(Frequency)
		return ok && f.Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(EventStatus)
		return ok && s.Valid()
	})
	return v
}

// ValidationError lists the rules an entity breaks.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// ValidateTask checks a task definition. createdAt is the task's creation
// time; the start date may not precede it.
func ValidateTask(t *Task, createdAt time.Time) error {
	var problems []string
	problems = appendTagProblems(problems, t)
	if !t.StartDate.IsZero() && t.StartDate.Before(createdAt) {
		problems = append(problems, "start date must not be before the task creation time")
	}
	if t.EndDate != nil && !t.EndDate.After(t.StartDate) {
		problems = append(problems, "end date must be after start date")
	}
	return problemsErr(problems)
}

func ValidateEvent(e *TaskEvent) error {
	var problems []string
	problems = appendTagProblems(problems, e)
	if e.ScheduledDate.IsZero() {
		problems = append(problems, "scheduled date is required")
	}
	if e.Status == StatusCompleted && e.CompletedDate == nil {
		problems = append(problems, "completed date is required for a completed event")
	}
	return problemsErr(problems)
}

func ValidateUser(u *User) error {
	return problemsErr(appendTagProblems(nil, u))
}

// ValidateReward checks a reward; a redemption date in the future is rejected.
func ValidateReward(r *Reward, now time.Time) error {
	problems := appendTagProblems(nil, r)
	if r.DateRedeemed != nil && r.DateRedeemed.After(now) {
		problems = append(problems, "redemption date must not be in the future")
	}
	return problemsErr(problems)
}

func appendTagProblems(problems []string, v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return problems
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return append(problems, err.Error())
	}
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "frequency", "status":
		return fmt.Sprintf("%s has an unknown value", field)
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}

func problemsErr(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
