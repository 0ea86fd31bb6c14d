package aggregate

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DecimalsSource resolves the decimals of an asset, typically over RPC.
type DecimalsSource interface {
	Decimals(ctx context.Context, asset common.Address) (uint8, error)
}

// TokenDecimalsCache resolves asset decimals once per asset. Lookups that
// fail, or run without a source, settle on the fallback.
type TokenDecimalsCache struct {
	source   DecimalsSource
	fallback uint8
	logger   *zap.Logger

	mu   sync.RWMutex
	data map[common.Address]uint8
}

func NewTokenDecimalsCache(source DecimalsSource, fallback uint8, logger *zap.Logger) *TokenDecimalsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenDecimalsCache{
		source:   source,
		fallback: fallback,
		logger:   logger,
		data:     make(map[common.Address]uint8),
	}
}

func (c *TokenDecimalsCache) Get(ctx context.Context, asset string) uint8 {
	if !common.IsHexAddress(asset) {
		return c.fallback
	}
	addr := common.HexToAddress(asset)

	c.mu.RLock()
	decimals, ok := c.data[addr]
	c.mu.RUnlock()
	if ok {
		return decimals
	}

	decimals = c.fallback
	if c.source != nil {
		fetched, err := c.source.Decimals(ctx, addr)
		if err != nil {
			c.logger.Warn("asset decimals", zap.String("asset", addr.Hex()), zap.Error(err))
		} else {
			decimals = fetched
		}
	}

	c.mu.Lock()
	c.data[addr] = decimals
	c.mu.Unlock()
	return decimals
}
