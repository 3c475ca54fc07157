// Package managers persists catalog records. Every exported operation runs in
// exactly one transaction obtained from a Transactor.
package managers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrNotFound     = errors.New("not found")
)

// TimeLayout is the fixed-width UTC layout used for every stored timestamp, so
// that text comparison in SQL matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Transactor runs fn inside a transaction, committing on nil and rolling back
// otherwise.
type Transactor interface {
	Transaction(fn func(*sql.Tx) error) error
}

// BoundTx adapts an open transaction to Transactor. Managers built on it run
// their statements on Tx; commit and rollback stay with whoever opened it.
type BoundTx struct {
	Tx *sql.Tx
}

func (b BoundTx) Transaction(fn func(*sql.Tx) error) error {
	return fn(b.Tx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type base struct {
	tx    Transactor
	clock clockwork.Clock
	log   *slog.Logger
}

func newBase(tx Transactor, clock clockwork.Clock, log *slog.Logger) base {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return base{tx: tx, clock: clock, log: log}
}

func (b base) now() time.Time {
	return b.clock.Now().UTC()
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

// encodeJSON returns nil for empty values so the column is stored as NULL.
func encodeJSON[T any](v T, empty bool) (interface{}, error) {
	if empty {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(ns sql.NullString, dst interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(ns.String), dst); err != nil {
		return fmt.Errorf("failed to decode json: %w", err)
	}
	return nil
}
