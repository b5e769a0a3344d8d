package ports

import (
	"context"

	"github.com/funnelworks/funnel/pkg/domain"
)

// StateStore defines the interface for persisting session state.
// The core treats sessions as ephemeral, but hosts that serve many
// participants (HTTP mode) keep state out-of-process behind this port.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of known sessions.
	List(ctx context.Context) ([]string, error)
}
