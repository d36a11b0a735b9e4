package storage

import (
	"context"
	"errors"
	"time"

	"fs22bot/internal/stats"
)

var (
	ErrDisabled      = errors.New("storage disabled")
	ErrClosed        = errors.New("storage closed")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Config configures storage. An empty Driver or "none" disables persistence.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the app.
type Store interface {
	// LoadStats returns the last saved state; ok is false when nothing was saved yet.
	LoadStats(ctx context.Context) (st stats.State, ok bool, err error)
	SaveStats(ctx context.Context, st stats.State) error
	Close() error
}
