package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityPool/internal/model"
)

// Store provides Postgres persistence for the journal, reports and engine state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutLogBatch appends journal records. Re-inserting a sequence is a no-op.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, log := range logs {
		batch.Queue(`
			INSERT INTO pool_events (
				sequence, operation_id, pool_address, topics, data, block_ts, recorded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (sequence) DO NOTHING
		`,
			int64(log.Sequence),
			log.OperationID,
			log.Address,
			log.Topics,
			log.Data,
			int64(log.Timestamp),
			log.RecordedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range logs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LastSequence returns the highest journal sequence stored.
func (s *Store) LastSequence(ctx context.Context) (uint64, error) {
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM pool_events`)
	if err := row.Scan(&last); err != nil {
		return 0, err
	}
	return uint64(last), nil
}

// LogsAfter returns up to limit journal records with sequence > after, in order.
func (s *Store) LogsAfter(ctx context.Context, after uint64, limit int) ([]model.LogRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sequence, operation_id, pool_address, topics, data, block_ts, recorded_at
		FROM pool_events
		WHERE sequence > $1
		ORDER BY sequence
		LIMIT $2
	`, int64(after), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LogRecord
	for rows.Next() {
		var (
			rec      model.LogRecord
			sequence int64
			ts       int64
		)
		if err := rows.Scan(&sequence, &rec.OperationID, &rec.Address, &rec.Topics, &rec.Data, &ts, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.Sequence = uint64(sequence)
		rec.Timestamp = uint64(ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolInfo) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, pool_id, asset_x, asset_y, share_mint, fee_bps, first_seen_sequence, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				pool_id = EXCLUDED.pool_id,
				asset_x = EXCLUDED.asset_x,
				asset_y = EXCLUDED.asset_y,
				share_mint = EXCLUDED.share_mint,
				fee_bps = EXCLUDED.fee_bps,
				first_seen_sequence = LEAST(pools.first_seen_sequence, EXCLUDED.first_seen_sequence),
				updated_at = now()
		`,
			pool.Address,
			int64(pool.Meta.PoolID),
			pool.Meta.AssetX,
			pool.Meta.AssetY,
			pool.Meta.ShareMint,
			int32(pool.Meta.FeeBps),
			int64(pool.FirstSeenSequence),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, deposit_count, withdraw_count, volume_x, volume_y, fee_x, fee_y,
				reserve_x, reserve_y, fee_rate_x, fee_rate_y, apr, last_sequence, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				reserve_x = EXCLUDED.reserve_x,
				reserve_y = EXCLUDED.reserve_y,
				fee_rate_x = EXCLUDED.fee_rate_x,
				fee_rate_y = EXCLUDED.fee_rate_y,
				apr = EXCLUDED.apr,
				last_sequence = EXCLUDED.last_sequence,
				updated_at = now()
		`,
			m.PoolAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			m.VolumeX,
			m.VolumeY,
			m.FeeX,
			m.FeeY,
			m.ReserveX,
			m.ReserveY,
			m.FeeRateX,
			m.FeeRateY,
			m.APR,
			int64(m.LastSequence),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_sequence FROM report_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

// SaveState upserts the last processed sequence for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_state (name, last_sequence, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_sequence = EXCLUDED.last_sequence, updated_at = now()
	`, name, int64(seq))
	return err
}

// LoadSnapshot returns the JSON engine snapshot stored under name.
func (s *Store) LoadSnapshot(ctx context.Context, name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("state name required")
	}
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM amm_state WHERE name=$1`, name)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// SaveSnapshot upserts a JSON engine snapshot under name.
func (s *Store) SaveSnapshot(ctx context.Context, name string, sequence uint64, data []byte) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO amm_state (name, sequence, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET sequence = EXCLUDED.sequence, snapshot = EXCLUDED.snapshot, updated_at = now()
	`, name, int64(sequence), data)
	return err
}
