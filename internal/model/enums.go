package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// ErrUnknownEnum is returned when a persisted enum value has no mapping.
var ErrUnknownEnum = errors.New("unknown enum value")

// Frequency is the recurrence unit of a task.
type Frequency int

const (
	FrequencyDaily Frequency = iota + 1
	FrequencyWeekly
	FrequencyMonthly
	FrequencyYearly
)

var frequencyNames = map[Frequency]string{
	FrequencyDaily:   "daily",
	FrequencyWeekly:  "weekly",
	FrequencyMonthly: "monthly",
	FrequencyYearly:  "yearly",
}

// ParseFrequency maps a persisted string back to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("frequency %q: %w", s, ErrUnknownEnum)
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

func (f Frequency) Valid() bool {
	_, ok := frequencyNames[f]
	return ok
}

// Value stores the frequency as its string name.
func (f Frequency) Value() (driver.Value, error) {
	name, ok := frequencyNames[f]
	if !ok {
		return nil, fmt.Errorf("frequency %d: %w", int(f), ErrUnknownEnum)
	}
	return name, nil
}

func (f *Frequency) Scan(src any) error {
	s, err := enumString(src)
	if err != nil {
		return fmt.Errorf("scan frequency: %w", err)
	}
	parsed, err := ParseFrequency(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// GormDataType keeps the column textual regardless of the Go kind.
func (Frequency) GormDataType() string { return "string" }

// EventStatus is the lifecycle state of a task event.
type EventStatus int

const (
	StatusScheduled EventStatus = iota + 1
	StatusCompleted
	StatusExpired
	StatusCancelled
)

var statusNames = map[EventStatus]string{
	StatusScheduled: "scheduled",
	StatusCompleted: "completed",
	StatusExpired:   "expired",
	StatusCancelled: "cancelled",
}

func ParseEventStatus(s string) (EventStatus, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("event status %q: %w", s, ErrUnknownEnum)
}

func (s EventStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("EventStatus(%d)", int(s))
}

func (s EventStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal reports whether no transition leaves the status.
func (s EventStatus) Terminal() bool {
	return s == StatusExpired || s == StatusCancelled
}

func (s EventStatus) Value() (driver.Value, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("event status %d: %w", int(s), ErrUnknownEnum)
	}
	return name, nil
}

func (s *EventStatus) Scan(src any) error {
	str, err := enumString(src)
	if err != nil {
		return fmt.Errorf("scan event status: %w", err)
	}
	parsed, err := ParseEventStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (EventStatus) GormDataType() string { return "string" }

func enumString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("null value: %w", ErrUnknownEnum)
	default:
		return "", fmt.Errorf("unsupported type %T: %w", src, ErrUnknownEnum)
	}
}
