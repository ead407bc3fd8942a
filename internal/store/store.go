// Package store persists the bot's exchange rate, user roster and usage counters.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultExchangeRate applies when the stored document has no exchange_rate field.
const DefaultExchangeRate = 12.5

var (
	// ErrInvalidRate rejects rates that are not finite positive numbers.
	ErrInvalidRate = errors.New("exchange rate must be a positive number")
	// ErrCorrupted matches every *CorruptionError.
	ErrCorrupted = errors.New("record store corrupted")
)

// CorruptionError reports storage that cannot be read or violates the document invariants.
type CorruptionError struct {
	Source string
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrCorrupted, e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCorrupted) match.
func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupted }

// Code implements the error code convention used in handler logs.
func (e *CorruptionError) Code() string { return "STORE_CORRUPTED" }

// UserRecord is created on a user's first contact and never changed afterwards.
type UserRecord struct {
	ID          int64
	DisplayName string
	FirstSeen   time.Time
}

// Statistics aggregates usage counters.
type Statistics struct {
	TotalCalculations int64 `db:"total_calculations"`
	TotalUsers        int64 `db:"total_users"`
}

// RecordStore is the durable state of the bot. Every method is atomic.
type RecordStore interface {
	ExchangeRate(ctx context.Context) (float64, error)
	// SetExchangeRate returns ErrInvalidRate and keeps the old rate when rate is not positive.
	SetExchangeRate(ctx context.Context, rate float64) error
	// RegisterUser adds the user once; later calls with the same id are no-ops.
	RegisterUser(ctx context.Context, id int64, name string) error
	IncrementCalculations(ctx context.Context) error
	Statistics(ctx context.Context) (Statistics, error)
	// Users returns a snapshot in registration order.
	Users(ctx context.Context) ([]UserRecord, error)
}

// ValidateRate returns ErrInvalidRate unless rate is finite and > 0.
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return nil
}
