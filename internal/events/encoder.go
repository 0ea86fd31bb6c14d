package events

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"liquidityPool/internal/model"
)

// Encoder turns events into journal log records.
type Encoder struct {
	poolABI abi.ABI
}

func NewEncoder() (*Encoder, error) {
	poolABI, err := PoolEventsABI()
	if err != nil {
		return nil, err
	}
	return &Encoder{poolABI: poolABI}, nil
}

// Encode builds the log record for ev at the given journal sequence.
func (e *Encoder) Encode(sequence uint64, at time.Time, ev Event) (model.LogRecord, error) {
	event, ok := e.poolABI.Events[ev.Name()]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unsupported event name: %s", ev.Name())
	}

	indexed, values, err := eventArguments(ev)
	if err != nil {
		return model.LogRecord{}, err
	}
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", event.Name, err)
	}

	topicHashes := make([]common.Hash, 0, len(indexed)+1)
	topicHashes = append(topicHashes, event.ID)
	for _, addr := range indexed {
		topicHashes = append(topicHashes, common.BytesToHash(addr.Bytes()))
	}
	topics := make([]string, 0, len(topicHashes))
	for _, topic := range topicHashes {
		topics = append(topics, topic.Hex())
	}

	pool := ev.PoolAddress()
	return model.LogRecord{
		Sequence:    sequence,
		OperationID: operationID(sequence, pool, topicHashes, data).Hex(),
		Address:     pool.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   uint64(at.Unix()),
		RecordedAt:  at.UTC().Format(time.RFC3339Nano),
	}, nil
}

func operationID(sequence uint64, pool common.Address, topics []common.Hash, data []byte) common.Hash {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	parts := make([][]byte, 0, len(topics)+3)
	parts = append(parts, seq[:], pool.Bytes())
	for _, topic := range topics {
		parts = append(parts, topic.Bytes())
	}
	parts = append(parts, data)
	return crypto.Keccak256Hash(parts...)
}

func eventArguments(ev Event) ([]common.Address, []interface{}, error) {
	switch e := ev.(type) {
	case PoolInitialized:
		var authority common.Address
		if e.Authority != nil {
			authority = *e.Authority
		}
		return []common.Address{e.Initializer},
			[]interface{}{e.PoolID, e.AssetX, e.AssetY, e.ShareMint, e.FeeBps, authority}, nil
	case Deposit:
		return []common.Address{e.Owner}, liquidityValues(e.Liquidity), nil
	case Withdraw:
		return []common.Address{e.Owner}, liquidityValues(e.Liquidity), nil
	case Swap:
		return []common.Address{e.Trader},
			[]interface{}{e.XToY, e.AmountIn, e.AmountOut, e.Fee, e.ReserveX, e.ReserveY}, nil
	case LockChanged:
		return []common.Address{e.Authority}, []interface{}{e.Locked}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event type %T", ev)
	}
}

func liquidityValues(l Liquidity) []interface{} {
	return []interface{}{l.Shares, l.AmountX, l.AmountY, l.ReserveX, l.ReserveY, l.ShareSupply}
}
