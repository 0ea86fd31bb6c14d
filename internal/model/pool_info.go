package model

// PoolInfo is the reporting view of a pool: its address, immutable metadata
// and the first journal sequence it appeared at.
type PoolInfo struct {
	Address           string   `json:"address"`
	Meta              PoolMeta `json:"meta"`
	FirstSeenSequence uint64   `json:"first_seen_sequence"`
}
