package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type legKind uint8

const (
	legMove legKind = iota
	legMint
	legBurn
)

func (k legKind) String() string {
	switch k {
	case legMove:
		return "move"
	case legMint:
		return "mint"
	case legBurn:
		return "burn"
	default:
		return "unknown"
	}
}

type leg struct {
	kind   legKind
	asset  common.Address
	from   common.Address
	to     common.Address
	amount uint64
	auth   Authorizer
}

// Batch is an ordered list of transfers applied all-or-nothing by Commit.
type Batch struct {
	ledger *Ledger
	legs   []leg
}

// NewBatch starts an empty batch against l.
func (l *Ledger) NewBatch() *Batch {
	return &Batch{ledger: l}
}

// Move transfers amount of asset from one account to another. auth must be
// able to sign for from.
func (b *Batch) Move(asset, from, to common.Address, amount uint64, auth Authorizer) *Batch {
	b.legs = append(b.legs, leg{kind: legMove, asset: asset, from: from, to: to, amount: amount, auth: auth})
	return b
}

// Mint issues amount of asset to to. auth must be the mint authority.
func (b *Batch) Mint(asset, to common.Address, amount uint64, auth Authorizer) *Batch {
	b.legs = append(b.legs, leg{kind: legMint, asset: asset, to: to, amount: amount, auth: auth})
	return b
}

// Burn destroys amount of asset held by from. auth must be able to sign for from.
func (b *Batch) Burn(asset, from common.Address, amount uint64, auth Authorizer) *Batch {
	b.legs = append(b.legs, leg{kind: legBurn, asset: asset, from: from, amount: amount, auth: auth})
	return b
}

// Len returns the number of staged legs.
func (b *Batch) Len() int {
	return len(b.legs)
}

type overlay struct {
	ledger   *Ledger
	balances map[accountKey]uint64
	supplies map[common.Address]uint64
}

func (o *overlay) balance(key accountKey) uint64 {
	if v, ok := o.balances[key]; ok {
		return v
	}
	return o.ledger.balances[key]
}

func (o *overlay) supply(asset common.Address) uint64 {
	if v, ok := o.supplies[asset]; ok {
		return v
	}
	return o.ledger.mints[asset].supply
}

func (o *overlay) debit(owner, asset common.Address, amount uint64) error {
	key := accountKey{owner: owner, asset: asset}
	bal := o.balance(key)
	if bal < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, owner.Hex(), bal, asset.Hex(), amount)
	}
	o.balances[key] = bal - amount
	return nil
}

func (o *overlay) credit(owner, asset common.Address, amount uint64) error {
	key := accountKey{owner: owner, asset: asset}
	bal := o.balance(key)
	if bal+amount < bal {
		return fmt.Errorf("%w: credit %d to %s", ErrOverflow, amount, owner.Hex())
	}
	o.balances[key] = bal + amount
	return nil
}

// Commit validates every leg against a staged view of the ledger and applies
// them only if all succeed. On error the ledger is unchanged.
func (b *Batch) Commit() error {
	l := b.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	o := &overlay{
		ledger:   l,
		balances: make(map[accountKey]uint64),
		supplies: make(map[common.Address]uint64),
	}
	for i, lg := range b.legs {
		if err := o.apply(lg); err != nil {
			return fmt.Errorf("leg %d %s: %w", i, lg.kind, err)
		}
	}

	for key, bal := range o.balances {
		if bal == 0 {
			delete(l.balances, key)
			continue
		}
		l.balances[key] = bal
		l.owners[key.owner] = struct{}{}
	}
	for asset, supply := range o.supplies {
		l.mints[asset].supply = supply
	}
	return nil
}

func (o *overlay) apply(lg leg) error {
	l := o.ledger
	m, ok := l.mints[lg.asset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMint, lg.asset.Hex())
	}
	if lg.auth == nil {
		return ErrUnauthorized
	}

	switch lg.kind {
	case legMove:
		if !lg.auth.canSign(l, lg.from) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, lg.from.Hex())
		}
		if lg.amount == 0 {
			return nil
		}
		if err := o.debit(lg.from, lg.asset, lg.amount); err != nil {
			return err
		}
		return o.credit(lg.to, lg.asset, lg.amount)

	case legMint:
		if !m.issued || lg.auth.Address() != m.authority || !lg.auth.canSign(l, m.authority) {
			return fmt.Errorf("%w: mint authority of %s", ErrUnauthorized, lg.asset.Hex())
		}
		if lg.amount == 0 {
			return nil
		}
		supply := o.supply(lg.asset)
		if supply+lg.amount < supply {
			return fmt.Errorf("%w: supply of %s", ErrOverflow, lg.asset.Hex())
		}
		if err := o.credit(lg.to, lg.asset, lg.amount); err != nil {
			return err
		}
		o.supplies[lg.asset] = supply + lg.amount
		return nil

	case legBurn:
		if !lg.auth.canSign(l, lg.from) {
			return fmt.Errorf("%w: %s", ErrUnauthorized, lg.from.Hex())
		}
		if lg.amount == 0 {
			return nil
		}
		if err := o.debit(lg.from, lg.asset, lg.amount); err != nil {
			return err
		}
		o.supplies[lg.asset] = o.supply(lg.asset) - lg.amount
		return nil
	}
	return fmt.Errorf("unknown leg kind %d", lg.kind)
}
