// Package state persists engine snapshots between runs.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"liquidityPool/internal/pool"
	"liquidityPool/internal/storage/postgres"
)

// SnapshotVersion is the layout version written by this package.
const SnapshotVersion = 1

// Snapshot is a persisted engine snapshot together with the journal
// sequence it corresponds to.
type Snapshot struct {
	Version  int    `json:"version"`
	Sequence uint64 `json:"sequence"`
	SavedAt  string `json:"saved_at"`
	pool.Snapshot
}

// Capture snapshots the engine at the given journal sequence.
func Capture(engine *pool.Engine, sequence uint64) Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Sequence: sequence,
		SavedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Snapshot: engine.Snapshot(),
	}
}

// Store persists engine snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}

func decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap, nil
}

// FileStore stores the snapshot in a local JSON file.
type FileStore struct {
	Path string
}

func (s *FileStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if s == nil || s.Path == "" {
		return Snapshot{}, false, nil
	}
	data, ok, err := readFile(s.Path)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	snap, err := decode(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.Path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return writeFileAtomic(s.Path, data)
}

// DBStore stores the snapshot in the amm_state table.
type DBStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if s == nil || s.Store == nil {
		return Snapshot{}, false, nil
	}
	data, ok, err := s.Store.LoadSnapshot(ctx, s.Name)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	snap, err := decode(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *DBStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.Store == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.Store.SaveSnapshot(ctx, s.Name, snap.Sequence, data)
}
