package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

// Journal assigns sequence numbers to events and appends them to a sink.
type Journal struct {
	sink    storage.Storage
	encoder *Encoder
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sequence uint64
}

// NewJournal creates a journal whose next record gets sequence last+1.
func NewJournal(sink storage.Storage, last uint64, logger *zap.Logger) (*Journal, error) {
	if sink == nil {
		return nil, fmt.Errorf("journal sink is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	encoder, err := NewEncoder()
	if err != nil {
		return nil, err
	}
	return &Journal{
		sink:     sink,
		encoder:  encoder,
		logger:   logger,
		now:      time.Now,
		sequence: last,
	}, nil
}

// Emit encodes ev and writes it to the sink. The sequence only advances
// when the write succeeds.
func (j *Journal) Emit(ctx context.Context, ev Event) (model.LogRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	record, err := j.encoder.Encode(j.sequence+1, j.now(), ev)
	if err != nil {
		return model.LogRecord{}, err
	}
	if err := j.sink.PutLogBatch(ctx, []model.LogRecord{record}); err != nil {
		return model.LogRecord{}, fmt.Errorf("append %s: %w", ev.Name(), err)
	}
	j.sequence = record.Sequence
	j.logger.Debug("journal append",
		zap.Uint64("sequence", record.Sequence),
		zap.String("event", ev.Name()),
		zap.String("pool", record.Address),
	)
	return record, nil
}

// Sequence returns the last written sequence.
func (j *Journal) Sequence() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sequence
}
