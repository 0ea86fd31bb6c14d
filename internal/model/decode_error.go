package model

// DecodeError records a journal line that could not be decoded.
type DecodeError struct {
	Sequence    uint64 `json:"sequence"`
	OperationID string `json:"operation_id"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}
