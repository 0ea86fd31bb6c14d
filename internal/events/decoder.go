package events

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityPool/internal/model"
)

// PoolMetaCache caches pool metadata by pool address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Decoder converts journal log records into typed events.
type Decoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
	meta        *PoolMetaCache
}

// NewDecoder builds a decoder. PoolInitialized records populate meta, which
// later records of the same pool are enriched from. A nil cache disables
// enrichment.
func NewDecoder(meta *PoolMetaCache) (*Decoder, error) {
	poolABI, err := PoolEventsABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}
	return &Decoder{poolABI: poolABI, topicToName: topicToName, meta: meta}, nil
}

// CanDecode checks if the topic0 is a pool event.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *Decoder) Decode(log model.LogRecord) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	event := d.poolABI.Events[name]
	owner, err := parseIndexedAddress(event, log.Topics)
	if err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	switch name {
	case model.EventPoolInitialized:
		data, err := decodePoolInitialized(owner, values)
		if err != nil {
			return nil, err
		}
		if d.meta != nil {
			d.meta.Set(pool, model.PoolMeta{
				PoolID:    data.PoolID,
				AssetX:    data.AssetX,
				AssetY:    data.AssetY,
				ShareMint: data.ShareMint,
				FeeBps:    data.FeeBps,
			})
		}
		decoded = data
	case model.EventDeposit, model.EventWithdraw:
		decoded, err = decodeLiquidity(owner, values)
	case model.EventSwap:
		decoded, err = decodeSwap(owner, values)
	case model.EventLockChanged:
		decoded, err = decodeLockChanged(owner, values)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	var meta model.PoolMeta
	if d.meta != nil {
		meta, _ = d.meta.Get(pool)
	}
	return &model.TypedEvent{
		Sequence:    log.Sequence,
		OperationID: log.OperationID,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    meta,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}, nil
}

func decodePoolInitialized(initializer common.Address, values []interface{}) (model.PoolInitializedEventData, error) {
	if len(values) != 6 {
		return model.PoolInitializedEventData{}, fmt.Errorf("unexpected values: %d", len(values))
	}
	poolID, err := asUint64(values[0])
	if err != nil {
		return model.PoolInitializedEventData{}, err
	}
	assetX, err := asAddress(values[1])
	if err != nil {
		return model.PoolInitializedEventData{}, err
	}
	assetY, err := asAddress(values[2])
	if err != nil {
		return model.PoolInitializedEventData{}, err
	}
	shareMint, err := asAddress(values[3])
	if err != nil {
		return model.PoolInitializedEventData{}, err
	}
	fee, ok := values[4].(uint16)
	if !ok {
		return model.PoolInitializedEventData{}, fmt.Errorf("unexpected fee type %T", values[4])
	}
	authority, err := asAddress(values[5])
	if err != nil {
		return model.PoolInitializedEventData{}, err
	}

	data := model.PoolInitializedEventData{
		Initializer: initializer.Hex(),
		PoolID:      poolID,
		AssetX:      assetX.Hex(),
		AssetY:      assetY.Hex(),
		ShareMint:   shareMint.Hex(),
		FeeBps:      fee,
	}
	if authority != (common.Address{}) {
		data.Authority = authority.Hex()
	}
	return data, nil
}

func decodeLiquidity(owner common.Address, values []interface{}) (model.LiquidityEventData, error) {
	amounts, err := asUint64s(values, 6)
	if err != nil {
		return model.LiquidityEventData{}, err
	}
	return model.LiquidityEventData{
		Owner:       owner.Hex(),
		Shares:      formatUint(amounts[0]),
		AmountX:     formatUint(amounts[1]),
		AmountY:     formatUint(amounts[2]),
		ReserveX:    formatUint(amounts[3]),
		ReserveY:    formatUint(amounts[4]),
		ShareSupply: formatUint(amounts[5]),
	}, nil
}

func decodeSwap(trader common.Address, values []interface{}) (model.SwapEventData, error) {
	if len(values) != 6 {
		return model.SwapEventData{}, fmt.Errorf("unexpected values: %d", len(values))
	}
	xToY, ok := values[0].(bool)
	if !ok {
		return model.SwapEventData{}, fmt.Errorf("unexpected direction type %T", values[0])
	}
	amounts, err := asUint64s(values[1:], 5)
	if err != nil {
		return model.SwapEventData{}, err
	}
	return model.SwapEventData{
		Trader:    trader.Hex(),
		XToY:      xToY,
		AmountIn:  formatUint(amounts[0]),
		AmountOut: formatUint(amounts[1]),
		Fee:       formatUint(amounts[2]),
		ReserveX:  formatUint(amounts[3]),
		ReserveY:  formatUint(amounts[4]),
	}, nil
}

func decodeLockChanged(authority common.Address, values []interface{}) (model.LockChangedEventData, error) {
	if len(values) != 1 {
		return model.LockChangedEventData{}, fmt.Errorf("unexpected values: %d", len(values))
	}
	locked, ok := values[0].(bool)
	if !ok {
		return model.LockChangedEventData{}, fmt.Errorf("unexpected locked type %T", values[0])
	}
	return model.LockChangedEventData{Authority: authority.Hex(), Locked: locked}, nil
}

// parseIndexedAddress returns the single indexed address every pool event carries.
func parseIndexedAddress(event abi.Event, topics []string) (common.Address, error) {
	indexed := indexedArguments(event.Inputs)
	if len(topics) != len(indexed)+1 {
		return common.Address{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(topics))
	}
	hashes, err := parseTopicHashes(topics[1:])
	if err != nil {
		return common.Address{}, err
	}

	var out struct {
		Addr common.Address
	}
	field := indexed[0]
	field.Name = "addr"
	if err := abi.ParseTopics(&out, abi.Arguments{field}, hashes); err != nil {
		return common.Address{}, fmt.Errorf("parse topics: %w", err)
	}
	return out.Addr, nil
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	addr, ok := value.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected address type %T", value)
	}
	return addr, nil
}

func asUint64(value interface{}) (uint64, error) {
	v, ok := value.(uint64)
	if !ok {
		return 0, fmt.Errorf("unexpected uint64 type %T", value)
	}
	return v, nil
}

func asUint64s(values []interface{}, want int) ([]uint64, error) {
	if len(values) != want {
		return nil, fmt.Errorf("unexpected values: %d", len(values))
	}
	out := make([]uint64, 0, want)
	for _, value := range values {
		v, err := asUint64(value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
