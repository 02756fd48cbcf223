// Package apperr defines the classified error returned by every public
// service operation.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInvalidTransition   Kind = "invalid_transition"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindStorage             Kind = "storage_failure"
)

// Error is the application error. Err keeps the underlying cause for logs
// and errors.Is/As; Message is safe to show to a user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind. A sentinel with a
// message only matches errors carrying that exact message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Sentinels for errors.Is.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrStorage             = &Error{Kind: KindStorage}

	// ErrAlreadyRedeemed is the invalid transition of redeeming a reward twice.
	ErrAlreadyRedeemed = &Error{Kind: KindInvalidTransition, Message: msgAlreadyRedeemed}
)

const msgAlreadyRedeemed = "reward already redeemed"

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id uint) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

func InvalidTransition(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func InsufficientBalance(userID uint, balance, amount int) *Error {
	return &Error{
		Kind:    KindInsufficientBalance,
		Message: fmt.Sprintf("user %d has %d points, %d required", userID, balance, amount),
	}
}

func AlreadyRedeemed() *Error {
	return &Error{Kind: KindInvalidTransition, Message: msgAlreadyRedeemed}
}

// Storage hides the cause behind a generic message. The cause stays
// reachable through Unwrap for logging.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op + " failed", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindStorage for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// Classify returns err unchanged when it already carries a kind, otherwise it
// wraps it as a storage failure of op.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return Storage(op, err)
}
