package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"liquidityPool/internal/events"
	"liquidityPool/internal/model"
	"liquidityPool/internal/storage"
)

// Source yields decoded events with sequence greater than after, in journal order.
type Source interface {
	Each(ctx context.Context, after uint64, fn func(model.TypedEventRecord) error) error
}

// LogReader pages raw journal records out of a database.
type LogReader interface {
	LogsAfter(ctx context.Context, after uint64, limit int) ([]model.LogRecord, error)
}

// JournalSource decodes a JSONL journal. Every record is decoded so pool
// metadata from PoolInitialized is known before the resume point.
type JournalSource struct {
	Path    string
	Decoder *events.Decoder
	OnError func(model.DecodeError)
	Logger  *zap.Logger
}

func (s *JournalSource) Each(ctx context.Context, after uint64, fn func(model.TypedEventRecord) error) error {
	if s.Decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	return storage.ScanLogRecords(s.Path, func(log model.LogRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return emitDecoded(s.Decoder, log, after, fn, s.OnError, s.Logger)
	})
}

// DBJournalSource decodes journal records stored in Postgres.
type DBJournalSource struct {
	Reader    LogReader
	Decoder   *events.Decoder
	BatchSize int
	OnError   func(model.DecodeError)
	Logger    *zap.Logger
}

func (s *DBJournalSource) Each(ctx context.Context, after uint64, fn func(model.TypedEventRecord) error) error {
	if s.Reader == nil || s.Decoder == nil {
		return fmt.Errorf("db journal source is not configured")
	}
	limit := s.BatchSize
	if limit <= 0 {
		limit = 1000
	}

	var cursor uint64
	for {
		logs, err := s.Reader.LogsAfter(ctx, cursor, limit)
		if err != nil {
			return fmt.Errorf("read journal after %d: %w", cursor, err)
		}
		for _, log := range logs {
			if err := emitDecoded(s.Decoder, log, after, fn, s.OnError, s.Logger); err != nil {
				return err
			}
			cursor = log.Sequence
		}
		if len(logs) < limit {
			return nil
		}
	}
}

// TypedFileSource reads events already decoded by `amm decode`.
type TypedFileSource struct {
	Path string
}

func (s *TypedFileSource) Each(ctx context.Context, after uint64, fn func(model.TypedEventRecord) error) error {
	file, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("parse typed event: %w", err)
		}
		if record.Sequence <= after {
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}

func emitDecoded(decoder *events.Decoder, log model.LogRecord, after uint64, fn func(model.TypedEventRecord) error, onError func(model.DecodeError), logger *zap.Logger) error {
	typed, err := decoder.Decode(log)
	if err != nil {
		if logger != nil {
			logger.Warn("decode journal record", zap.Uint64("sequence", log.Sequence), zap.Error(err))
		}
		if onError != nil {
			onError(decodeError(log, err))
		}
		return nil
	}
	if log.Sequence <= after {
		return nil
	}
	record, err := ToRecord(typed)
	if err != nil {
		return err
	}
	return fn(record)
}

// ToRecord converts a decoded event into its serialized form.
func ToRecord(ev *model.TypedEvent) (model.TypedEventRecord, error) {
	decoded, err := json.Marshal(ev.Decoded)
	if err != nil {
		return model.TypedEventRecord{}, fmt.Errorf("marshal %s payload: %w", ev.EventName, err)
	}
	return model.TypedEventRecord{
		Sequence:    ev.Sequence,
		OperationID: ev.OperationID,
		Address:     ev.Address,
		EventName:   ev.EventName,
		Timestamp:   ev.Timestamp,
		Decoded:     decoded,
		PoolMeta:    ev.PoolMeta,
		Raw:         ev.Raw,
	}, nil
}

func decodeError(log model.LogRecord, err error) model.DecodeError {
	var topic0 string
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0]
	}
	return model.DecodeError{
		Sequence:    log.Sequence,
		OperationID: log.OperationID,
		Address:     log.Address,
		Topic0:      topic0,
		Error:       err.Error(),
	}
}
