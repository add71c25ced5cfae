package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type GameConfig struct {
	// TurnDurationSeconds bounds how long a seat may sit on its turn
	// before the match loop draws or passes for it.
	TurnDurationSeconds int `json:"turn_duration_seconds"`
	// DrawIntervalTicks paces automatic dealing during the draw phase.
	DrawIntervalTicks int `json:"draw_interval_ticks"`

	TableSize int `json:"table_size"`

	RoomTokenSecret     string `json:"room_token_secret"`
	RoomTokenIssuer     string `json:"room_token_issuer"`
	RoomTokenTTLSeconds int    `json:"room_token_ttl_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetTurnDurationSeconds returns the configured turn clock, or a safe
// default when no config was loaded.
func GetTurnDurationSeconds() int {
	if cfg == nil || cfg.TurnDurationSeconds <= 0 {
		return 30
	}
	return cfg.TurnDurationSeconds
}

// GetDrawIntervalTicks returns the dealing cadence in match ticks.
func GetDrawIntervalTicks() int {
	if cfg == nil || cfg.DrawIntervalTicks <= 0 {
		return 2
	}
	return cfg.DrawIntervalTicks
}

// GetTableSize returns the number of seats new rooms open with.
func GetTableSize() int {
	if cfg == nil || cfg.TableSize < 4 || cfg.TableSize%2 != 0 {
		return 4
	}
	return cfg.TableSize
}

// GetRoomTokenSecret returns the HMAC secret for room admission tokens.
func GetRoomTokenSecret() string {
	if cfg == nil {
		return ""
	}
	return cfg.RoomTokenSecret
}

// GetRoomTokenIssuer returns the issuer claim for room admission tokens.
func GetRoomTokenIssuer() string {
	if cfg == nil || cfg.RoomTokenIssuer == "" {
		return "shengji"
	}
	return cfg.RoomTokenIssuer
}

// GetRoomTokenTTLSeconds returns the room token lifetime.
func GetRoomTokenTTLSeconds() int {
	if cfg == nil || cfg.RoomTokenTTLSeconds <= 0 {
		return 3600
	}
	return cfg.RoomTokenTTLSeconds
}
