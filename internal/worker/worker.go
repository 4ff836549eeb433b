package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/OCAP2/dockyard/internal/station"
)

// DefaultCommandTimeout bounds how long a handler waits for the frame loop.
const DefaultCommandTimeout = 5 * time.Second

// Commander runs station commands. *station.Station satisfies it.
type Commander interface {
	Do(ctx context.Context, cmd station.Command) (any, error)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Station        Commander
	CommandTimeout time.Duration
	Logger         *slog.Logger
}

// Manager translates dispatcher events into station commands
type Manager struct {
	deps Dependencies
	log  *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.CommandTimeout <= 0 {
		deps.CommandTimeout = DefaultCommandTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps: deps,
		log:  deps.Logger,
	}
}
