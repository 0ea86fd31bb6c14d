package storage

import (
	"context"

	"liquidityPool/internal/model"
)

// Storage defines a sink for journal log records.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}
