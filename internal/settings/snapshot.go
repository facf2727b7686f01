package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"carpet-studio/internal/gemini"
	"carpet-studio/internal/scene"
)

// DefaultKey names the single persisted settings record.
const DefaultKey = "carpet-studio.settings.v1"

var ErrNotFound = errors.New("settings snapshot not found")

// Snapshot is the flat record persisted between runs. Scene fields are
// inlined next to the API key and model.
type Snapshot struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
	scene.Settings
}

// Store persists snapshots under a key. Missing keys return ErrNotFound.
type Store interface {
	Load(ctx context.Context, key string) (Snapshot, error)
	Save(ctx context.Context, key string, snap Snapshot) error
	Reset(ctx context.Context, key string) error
}

func Defaults() Snapshot {
	return Snapshot{
		Model:    gemini.DefaultModel,
		Settings: scene.Defaults(),
	}
}

// Decode merges raw over the defaults, so fields missing from older records
// keep their default value. Scene values that no longer validate fall back to
// the default scene.
func Decode(raw []byte) (Snapshot, error) {
	snap := Defaults()
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Defaults(), fmt.Errorf("decode settings: %w", err)
	}
	if snap.Model == "" {
		snap.Model = gemini.DefaultModel
	}
	normalized, err := scene.New(snap.Settings)
	if err != nil {
		snap.Settings = scene.Defaults()
		return snap, err
	}
	snap.Settings = normalized
	return snap, nil
}

func Encode(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// LoadOrDefault never fails: unreadable or missing records give defaults.
func LoadOrDefault(ctx context.Context, store Store, key string) Snapshot {
	if store == nil {
		return Defaults()
	}
	snap, err := store.Load(ctx, key)
	if err != nil {
		return Defaults()
	}
	return snap
}
