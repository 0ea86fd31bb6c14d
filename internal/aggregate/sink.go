package aggregate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"liquidityPool/internal/model"
)

// Sink receives pool records and finished window metrics.
// *postgres.Store satisfies it.
type Sink interface {
	UpsertPools(ctx context.Context, pools []model.PoolInfo) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// JSONLSink appends metrics and pool records to JSONL files. A rerun over
// the same window appends a newer line; readers keep the last one per key.
type JSONLSink struct {
	MetricsPath string
	PoolsPath   string

	mu sync.Mutex
}

func (s *JSONLSink) UpsertPools(ctx context.Context, pools []model.PoolInfo) error {
	if s.PoolsPath == "" || len(pools) == 0 {
		return nil
	}
	rows := make([]interface{}, len(pools))
	for i := range pools {
		rows[i] = pools[i]
	}
	return s.append(ctx, s.PoolsPath, rows)
}

func (s *JSONLSink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	if s.MetricsPath == "" {
		return fmt.Errorf("metrics path is required")
	}
	rows := make([]interface{}, len(metrics))
	for i := range metrics {
		rows[i] = metrics[i]
	}
	return s.append(ctx, s.MetricsPath, rows)
}

func (s *JSONLSink) append(ctx context.Context, path string, rows []interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return writer.Flush()
}
