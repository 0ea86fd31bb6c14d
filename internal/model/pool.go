package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// MaxFeeBps is the exclusive upper bound of a pool fee in basis points.
const MaxFeeBps = 10_000

// PoolKey identifies a pool. At most one pool exists per key.
type PoolKey struct {
	AssetX common.Address `json:"asset_x"`
	AssetY common.Address `json:"asset_y"`
	PoolID uint64         `json:"pool_id"`
}

// String renders the key as "assetX-assetY-poolID", the form accepted by ParsePoolKey.
func (k PoolKey) String() string {
	return fmt.Sprintf("%s-%s-%d", k.AssetX.Hex(), k.AssetY.Hex(), k.PoolID)
}

// Less orders keys by asset X, asset Y, then pool id.
func (k PoolKey) Less(other PoolKey) bool {
	if c := k.AssetX.Cmp(other.AssetX); c != 0 {
		return c < 0
	}
	if c := k.AssetY.Cmp(other.AssetY); c != 0 {
		return c < 0
	}
	return k.PoolID < other.PoolID
}

// ParsePoolKey parses the String form of a PoolKey.
func ParsePoolKey(input string) (PoolKey, error) {
	parts := strings.Split(strings.TrimSpace(input), "-")
	if len(parts) != 3 {
		return PoolKey{}, fmt.Errorf("invalid pool key: %s", input)
	}
	if !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[1]) {
		return PoolKey{}, fmt.Errorf("invalid pool key assets: %s", input)
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return PoolKey{}, fmt.Errorf("invalid pool id: %w", err)
	}
	return PoolKey{
		AssetX: common.HexToAddress(parts[0]),
		AssetY: common.HexToAddress(parts[1]),
		PoolID: id,
	}, nil
}

// Pool is the persisted pool record.
//
// Address and ShareMint are derived from the key and the two bumps; they are
// stored so readers of a snapshot do not need the derivation rules.
type Pool struct {
	PoolID        uint64          `json:"pool_id"`
	Authority     *common.Address `json:"authority,omitempty"`
	AssetX        common.Address  `json:"asset_x"`
	AssetY        common.Address  `json:"asset_y"`
	FeeBps        uint16          `json:"fee_bps"`
	Locked        bool            `json:"locked"`
	AuthorityBump uint8           `json:"authority_bump"`
	ShareMintBump uint8           `json:"share_mint_bump"`
	Address       common.Address  `json:"address"`
	ShareMint     common.Address  `json:"share_mint"`
}

// Key returns the registry key of the pool.
func (p Pool) Key() PoolKey {
	return PoolKey{AssetX: p.AssetX, AssetY: p.AssetY, PoolID: p.PoolID}
}

// Managed reports whether the pool has an administrative authority.
func (p Pool) Managed() bool {
	return p.Authority != nil
}

// PoolState is a pool record together with its live reserves and share supply.
type PoolState struct {
	Pool        Pool   `json:"pool"`
	ReserveX    uint64 `json:"reserve_x"`
	ReserveY    uint64 `json:"reserve_y"`
	ShareSupply uint64 `json:"share_supply"`
}
