// Package ledger is an in-memory value-transfer ledger.
//
// Balances are keyed by (owner, asset). Every asset that carries balances has
// a mint record whose supply equals the sum of its balances. Some addresses are
// derived by a registered Program; only that program can produce signers for
// them, which is how a pool moves its own custody without a private key.
package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type accountKey struct {
	owner common.Address
	asset common.Address
}

type mintInfo struct {
	authority common.Address
	supply    uint64
	decimals  uint8
	// issued mints are created by a program; Fund refuses them.
	issued bool
}

// Ledger holds balances, mints and program-derived addresses.
type Ledger struct {
	mu       sync.Mutex
	balances map[accountKey]uint64
	owners   map[common.Address]struct{}
	mints    map[common.Address]*mintInfo
	derived  map[common.Address]common.Hash
	programs map[common.Hash]string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[accountKey]uint64),
		owners:   make(map[common.Address]struct{}),
		mints:    make(map[common.Address]*mintInfo),
		derived:  make(map[common.Address]common.Hash),
		programs: make(map[common.Hash]string),
	}
}

// Balance returns owner's balance of asset.
func (l *Ledger) Balance(owner, asset common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[accountKey{owner: owner, asset: asset}]
}

// Supply returns the total issued amount of asset.
func (l *Ledger) Supply(asset common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.mints[asset]; ok {
		return m.supply
	}
	return 0
}

// MintAuthority returns the mint authority and decimals of asset.
func (l *Ledger) MintAuthority(asset common.Address) (common.Address, uint8, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.mints[asset]
	if !ok {
		return common.Address{}, 0, false
	}
	return m.authority, m.decimals, true
}

// Fund credits amount of an externally issued asset to owner. It stands in
// for deposits arriving from outside the ledger and refuses program-issued
// mints, so pool shares can never be fabricated this way.
func (l *Ledger) Fund(owner, asset common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.derived[asset]; ok {
		return fmt.Errorf("fund %s: %w", asset.Hex(), ErrUnauthorized)
	}
	m, ok := l.mints[asset]
	if !ok {
		m = &mintInfo{}
		l.mints[asset] = m
	}
	if m.issued {
		return fmt.Errorf("fund %s: %w", asset.Hex(), ErrUnauthorized)
	}

	key := accountKey{owner: owner, asset: asset}
	balance := l.balances[key]
	if balance+amount < balance || m.supply+amount < m.supply {
		return fmt.Errorf("fund %s: %w", asset.Hex(), ErrOverflow)
	}
	l.balances[key] = balance + amount
	l.owners[owner] = struct{}{}
	m.supply += amount
	return nil
}

// inUse reports whether addr already means something on the ledger.
// Callers hold l.mu.
func (l *Ledger) inUse(addr common.Address) bool {
	if _, ok := l.derived[addr]; ok {
		return true
	}
	if _, ok := l.mints[addr]; ok {
		return true
	}
	_, ok := l.owners[addr]
	return ok
}
