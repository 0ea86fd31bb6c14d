package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"liquidityPool/internal/storage/postgres"
)

// ProgressFile keeps a consumer's journal cursor in a small JSON file.
type ProgressFile struct {
	Path string
}

type progressRecord struct {
	LastSequence uint64 `json:"last_sequence"`
	UpdatedAt    string `json:"updated_at"`
}

func (p *ProgressFile) Load(ctx context.Context) (uint64, bool, error) {
	if p == nil || p.Path == "" {
		return 0, false, nil
	}
	data, ok, err := readFile(p.Path)
	if err != nil || !ok {
		return 0, false, err
	}
	var rec progressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse progress %s: %w", p.Path, err)
	}
	return rec.LastSequence, true, nil
}

func (p *ProgressFile) Save(ctx context.Context, sequence uint64) error {
	if p == nil || p.Path == "" {
		return nil
	}
	data, err := json.Marshal(progressRecord{
		LastSequence: sequence,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return writeFileAtomic(p.Path, data)
}

// ProgressDB keeps a named journal cursor in the report_state table.
type ProgressDB struct {
	Store *postgres.Store
	Name  string
}

func (p *ProgressDB) Load(ctx context.Context) (uint64, bool, error) {
	if p == nil || p.Store == nil {
		return 0, false, nil
	}
	return p.Store.LoadState(ctx, p.Name)
}

func (p *ProgressDB) Save(ctx context.Context, sequence uint64) error {
	if p == nil || p.Store == nil {
		return nil
	}
	return p.Store.SaveState(ctx, p.Name, sequence)
}
