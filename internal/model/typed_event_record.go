package model

import "encoding/json"

// TypedEventRecord is the JSON representation of a TypedEvent read back for aggregation.
type TypedEventRecord struct {
	Sequence    uint64          `json:"sequence"`
	OperationID string          `json:"operation_id"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PoolMeta    PoolMeta        `json:"pool_meta"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}
