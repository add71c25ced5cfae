package nakama

import (
	"context"
	"fmt"

	"shengji/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	stateCollection = "game_state"
	stateKey        = "game"
)

// NakamaStateAdapter implements ports.StatePort on Nakama's storage engine.
// One object per room, owned by the system user so clients cannot read
// hidden hands through the storage API.
type NakamaStateAdapter struct {
	nk runtime.NakamaModule
}

func NewNakamaStateAdapter(nk runtime.NakamaModule) *NakamaStateAdapter {
	return &NakamaStateAdapter{nk: nk}
}

func (a *NakamaStateAdapter) SaveState(ctx context.Context, roomID string, game *domain.Game) error {
	value, err := marshalWire(gameStruct(game))
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	writes := []*runtime.StorageWrite{{
		Collection:      stateCollection,
		Key:             stateKey + ":" + roomID,
		Value:           string(value),
		PermissionRead:  0,
		PermissionWrite: 0,
	}}
	if _, err := a.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to write game state for room %s: %w", roomID, err)
	}
	return nil
}

func (a *NakamaStateAdapter) LoadState(ctx context.Context, roomID string) (*domain.Game, error) {
	reads := []*runtime.StorageRead{{
		Collection: stateCollection,
		Key:        stateKey + ":" + roomID,
	}}
	objects, err := a.nk.StorageRead(ctx, reads)
	if err != nil {
		return nil, fmt.Errorf("failed to read game state for room %s: %w", roomID, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	wire, err := unmarshalWire([]byte(objects[0].Value))
	if err != nil {
		return nil, fmt.Errorf("failed to decode game state for room %s: %w", roomID, err)
	}
	game, err := gameFromStruct(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state for room %s: %w", roomID, err)
	}
	return game, nil
}

func (a *NakamaStateAdapter) DeleteState(ctx context.Context, roomID string) error {
	deletes := []*runtime.StorageDelete{{
		Collection: stateCollection,
		Key:        stateKey + ":" + roomID,
	}}
	if err := a.nk.StorageDelete(ctx, deletes); err != nil {
		return fmt.Errorf("failed to delete game state for room %s: %w", roomID, err)
	}
	return nil
}
