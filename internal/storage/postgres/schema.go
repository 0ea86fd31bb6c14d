package postgres

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	sequence     BIGINT PRIMARY KEY,
	operation_id TEXT NOT NULL,
	pool_address TEXT NOT NULL,
	topics       TEXT[] NOT NULL,
	data         TEXT NOT NULL,
	block_ts     BIGINT NOT NULL,
	recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS pool_events_pool_idx ON pool_events (pool_address, sequence);

CREATE TABLE IF NOT EXISTS pools (
	pool_address        TEXT PRIMARY KEY,
	pool_id             BIGINT NOT NULL,
	asset_x             TEXT NOT NULL,
	asset_y             TEXT NOT NULL,
	share_mint          TEXT NOT NULL,
	fee_bps             INTEGER NOT NULL,
	first_seen_sequence BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_address        TEXT NOT NULL,
	window_size_seconds BIGINT NOT NULL,
	window_start_ts     TIMESTAMPTZ NOT NULL,
	window_end_ts       TIMESTAMPTZ NOT NULL,
	swap_count          BIGINT NOT NULL,
	deposit_count       BIGINT NOT NULL,
	withdraw_count      BIGINT NOT NULL,
	volume_x            NUMERIC NOT NULL,
	volume_y            NUMERIC NOT NULL,
	fee_x               NUMERIC NOT NULL,
	fee_y               NUMERIC NOT NULL,
	reserve_x           NUMERIC,
	reserve_y           NUMERIC,
	fee_rate_x          NUMERIC,
	fee_rate_y          NUMERIC,
	apr                 NUMERIC,
	last_sequence       BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_address, window_size_seconds, window_start_ts)
);

CREATE TABLE IF NOT EXISTS report_state (
	name          TEXT PRIMARY KEY,
	last_sequence BIGINT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS amm_state (
	name       TEXT PRIMARY KEY,
	sequence   BIGINT NOT NULL,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
