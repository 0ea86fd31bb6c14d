package pool

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
)

// Snapshot is a consistent copy of every pool record and the ledger.
type Snapshot struct {
	Pools  []model.Pool `json:"pools"`
	Ledger ledger.State `json:"ledger"`
}

// Snapshot captures the engine with every pool locked, so no operation is
// half applied in the exported ledger.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]model.PoolKey, 0, len(e.pools))
	for key := range e.pools {
		keys = append(keys, key)
	}
	sortKeys(keys)

	pools := make([]model.Pool, 0, len(keys))
	for _, key := range keys {
		ent := e.pools[key]
		ent.mu.Lock()
		defer ent.mu.Unlock()
		pools = append(pools, ent.pool)
	}
	return Snapshot{Pools: pools, Ledger: e.ledger.Export()}
}

// Restore replaces the engine's pools and ledger with snap. Every record's
// derived addresses must match its key and bumps, and its share mint must be
// issued by its pool address. On error nothing changes.
func (e *Engine) Restore(snap Snapshot) error {
	mints := make(map[common.Address]ledger.MintState, len(snap.Ledger.Mints))
	for _, m := range snap.Ledger.Mints {
		mints[m.Asset] = m
	}
	owned := make(map[common.Address]bool, len(snap.Ledger.Derived))
	for _, d := range snap.Ledger.Derived {
		owned[d.Address] = d.Program == e.program.ID()
	}

	pools := make(map[model.PoolKey]*entry, len(snap.Pools))
	for _, p := range snap.Pools {
		key := p.Key()
		if _, dup := pools[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePool, key)
		}
		if p.FeeBps >= model.MaxFeeBps {
			return fmt.Errorf("%w: %s has %d bps", ErrInvalidFee, key, p.FeeBps)
		}
		if p.AssetX == p.AssetY {
			return fmt.Errorf("%w: %s", ErrIdenticalAssets, key)
		}
		address, err := e.program.CreateAddress(p.AuthorityBump, poolSeeds(key)...)
		if err != nil || address != p.Address {
			return fmt.Errorf("restore %s: pool address does not match bump %d", key, p.AuthorityBump)
		}
		shareMint, err := e.program.CreateAddress(p.ShareMintBump, shareSeeds(address)...)
		if err != nil || shareMint != p.ShareMint {
			return fmt.Errorf("restore %s: share mint does not match bump %d", key, p.ShareMintBump)
		}
		if !owned[address] || !owned[shareMint] {
			return fmt.Errorf("restore %s: derived addresses are not allocated to the pool program", key)
		}
		m, ok := mints[shareMint]
		if !ok || m.Authority != address || !m.Issued {
			return fmt.Errorf("restore %s: share mint %s is not issued by the pool", key, shareMint.Hex())
		}
		pools[key] = &entry{pool: p}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ledger.Import(snap.Ledger); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	e.pools = pools
	e.metrics.setPools(len(pools))
	return nil
}

func sortKeys(keys []model.PoolKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
}
