package model

// LogRecord is one journal entry: an ABI-encoded pool event emitted after a committed operation.
type LogRecord struct {
	Sequence    uint64   `json:"sequence"`
	OperationID string   `json:"operation_id"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Timestamp   uint64   `json:"timestamp"`
	RecordedAt  string   `json:"recorded_at"`
}
