package ports

import (
	"context"

	"shengji/internal/domain"
)

// StatePort defines the interface for persisting room game state so a
// restarted match handler can pick a table back up.
type StatePort interface {
	// SaveState writes the authoritative game state for a room.
	SaveState(ctx context.Context, roomID string, game *domain.Game) error

	// LoadState reads the stored game state for a room. A room with no
	// stored state returns a nil game and no error.
	LoadState(ctx context.Context, roomID string) (*domain.Game, error)

	// DeleteState removes a finished room's stored state.
	DeleteState(ctx context.Context, roomID string) error
}
