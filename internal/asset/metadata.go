// Package asset looks up ERC-20 metadata for pool assets over JSON-RPC.
package asset

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPool/internal/model"
)

// Caller performs read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// MetaCache caches asset metadata by address.
type MetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.AssetMeta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{data: make(map[common.Address]model.AssetMeta)}
}

func (c *MetaCache) Get(address common.Address) (model.AssetMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *MetaCache) Set(address common.Address, meta model.AssetMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetcherConfig controls RPC retries.
type FetcherConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Fetcher resolves asset metadata through a Caller, caching successes.
type Fetcher struct {
	caller Caller
	cfg    FetcherConfig
	cache  *MetaCache
	logger *zap.Logger
}

func NewFetcher(caller Caller, cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &Fetcher{caller: caller, cfg: cfg, cache: NewMetaCache(), logger: logger}
}

// Decimals returns the asset's decimals.
func (f *Fetcher) Decimals(ctx context.Context, asset common.Address) (uint8, error) {
	meta, err := f.Meta(ctx, asset)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// Meta returns decimals, symbol and name. Decimals are required; symbol and
// name are best effort.
func (f *Fetcher) Meta(ctx context.Context, asset common.Address) (model.AssetMeta, error) {
	if meta, ok := f.cache.Get(asset); ok {
		return meta, nil
	}
	if f.caller == nil {
		return model.AssetMeta{}, fmt.Errorf("rpc caller is nil")
	}

	var meta model.AssetMeta
	err := f.retry(ctx, func(ctx context.Context) error {
		var err error
		meta, err = f.fetch(ctx, asset)
		return err
	})
	if err != nil {
		return model.AssetMeta{}, fmt.Errorf("asset %s metadata: %w", asset.Hex(), err)
	}
	f.cache.Set(asset, meta)
	return meta, nil
}

func (f *Fetcher) retry(ctx context.Context, fn func(context.Context) error) error {
	delay := f.cfg.RetryDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= f.cfg.MaxRetries {
			return err
		}
		f.logger.Debug("metadata call retry", zap.Int("attempt", attempt+1), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func (f *Fetcher) fetch(ctx context.Context, asset common.Address) (model.AssetMeta, error) {
	meta := model.AssetMeta{Address: asset.Hex()}

	stringABI, err := erc20StringABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := f.call(ctx, asset, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unexpected decimals type %T", values[0])
	}
	meta.Decimals = decimals

	meta.Symbol = f.text(ctx, asset, stringABI, bytes32ABI, "symbol")
	meta.Name = f.text(ctx, asset, stringABI, bytes32ABI, "name")
	return meta, nil
}

// text reads a string-valued method, falling back to the bytes32 layout.
func (f *Fetcher) text(ctx context.Context, asset common.Address, stringABI, bytes32ABI abi.ABI, method string) string {
	if values, err := f.call(ctx, asset, stringABI, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := f.call(ctx, asset, bytes32ABI, method)
	if err != nil {
		f.logger.Debug("metadata call failed", zap.String("asset", asset.Hex()), zap.String("method", method), zap.Error(err))
		return ""
	}
	if raw, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(raw[:], "\x00"))
	}
	return ""
}

func (f *Fetcher) call(ctx context.Context, asset common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &asset, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return values, nil
}
