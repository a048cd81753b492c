// Package persist holds the snapshot persistence backends. The in-memory
// core never touches a backend: callers export a snapshot, hand it to a
// Backend, and apply their own timeout and retry policy at this boundary.
package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livingcodex/codex/internal/codex/migration"
)

// Backend stores and loads snapshots.
type Backend interface {
	// Save persists a snapshot, replacing any previous one.
	Save(ctx context.Context, snap *migration.Snapshot) error

	// Load retrieves the stored snapshot. A backend with nothing stored
	// returns ErrNoSnapshot.
	Load(ctx context.Context) (*migration.Snapshot, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// ErrNoSnapshot signals an empty backend.
var ErrNoSnapshot = fmt.Errorf("no snapshot stored")

// Retrying wraps a backend with a fixed-attempt retry policy. Context
// cancellation stops the retries immediately.
type Retrying struct {
	backend  Backend
	attempts int
	delay    time.Duration
}

// WithRetry wraps a backend. attempts below one means a single try.
func WithRetry(b Backend, attempts int, delay time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{backend: b, attempts: attempts, delay: delay}
}

// Save persists with retries.
func (r *Retrying) Save(ctx context.Context, snap *migration.Snapshot) error {
	return r.retry(ctx, func() error {
		return r.backend.Save(ctx, snap)
	})
}

// Load retrieves with retries. ErrNoSnapshot is not retried: an empty
// backend stays empty.
func (r *Retrying) Load(ctx context.Context) (*migration.Snapshot, error) {
	var snap *migration.Snapshot
	err := r.retry(ctx, func() error {
		var loadErr error
		snap, loadErr = r.backend.Load(ctx)
		if errors.Is(loadErr, ErrNoSnapshot) {
			snap = nil
			return nil
		}
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Close closes the wrapped backend.
func (r *Retrying) Close(ctx context.Context) error {
	return r.backend.Close(ctx)
}

func (r *Retrying) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return fmt.Errorf("after %d attempts: %w", r.attempts, err)
}
