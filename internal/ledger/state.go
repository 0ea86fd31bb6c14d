package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// State is a serializable copy of a ledger. Registered programs are not part
// of it; they belong to the process that restores the state.
type State struct {
	Accounts []AccountState `json:"accounts"`
	Mints    []MintState    `json:"mints"`
	Derived  []DerivedState `json:"derived"`
}

type AccountState struct {
	Owner   common.Address `json:"owner"`
	Asset   common.Address `json:"asset"`
	Balance uint64         `json:"balance"`
}

type MintState struct {
	Asset     common.Address `json:"asset"`
	Authority common.Address `json:"authority"`
	Supply    uint64         `json:"supply"`
	Decimals  uint8          `json:"decimals"`
	Issued    bool           `json:"issued"`
}

type DerivedState struct {
	Address common.Address `json:"address"`
	Program common.Hash    `json:"program"`
}

// Export returns the ledger contents in a deterministic order.
func (l *Ledger) Export() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	var st State
	for key, bal := range l.balances {
		st.Accounts = append(st.Accounts, AccountState{Owner: key.owner, Asset: key.asset, Balance: bal})
	}
	sort.Slice(st.Accounts, func(i, j int) bool {
		a, b := st.Accounts[i], st.Accounts[j]
		if c := bytes.Compare(a.Owner.Bytes(), b.Owner.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Asset.Bytes(), b.Asset.Bytes()) < 0
	})

	for asset, m := range l.mints {
		st.Mints = append(st.Mints, MintState{
			Asset:     asset,
			Authority: m.authority,
			Supply:    m.supply,
			Decimals:  m.decimals,
			Issued:    m.issued,
		})
	}
	sort.Slice(st.Mints, func(i, j int) bool {
		return bytes.Compare(st.Mints[i].Asset.Bytes(), st.Mints[j].Asset.Bytes()) < 0
	})

	for addr, program := range l.derived {
		st.Derived = append(st.Derived, DerivedState{Address: addr, Program: program})
	}
	sort.Slice(st.Derived, func(i, j int) bool {
		return bytes.Compare(st.Derived[i].Address.Bytes(), st.Derived[j].Address.Bytes()) < 0
	})
	return st
}

// Import replaces the ledger contents with st. Every mint supply must equal
// the sum of its balances and every derived address must belong to a
// registered program. On error the ledger is unchanged.
func (l *Ledger) Import(st State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	mints := make(map[common.Address]*mintInfo, len(st.Mints))
	for _, m := range st.Mints {
		if _, dup := mints[m.Asset]; dup {
			return fmt.Errorf("%w: duplicate mint %s", ErrCorruptState, m.Asset.Hex())
		}
		mints[m.Asset] = &mintInfo{authority: m.Authority, supply: m.Supply, decimals: m.Decimals, issued: m.Issued}
	}

	balances := make(map[accountKey]uint64, len(st.Accounts))
	owners := make(map[common.Address]struct{})
	sums := make(map[common.Address]uint64)
	for _, a := range st.Accounts {
		if _, ok := mints[a.Asset]; !ok {
			return fmt.Errorf("%w: balance in unknown mint %s", ErrCorruptState, a.Asset.Hex())
		}
		key := accountKey{owner: a.Owner, asset: a.Asset}
		if _, dup := balances[key]; dup {
			return fmt.Errorf("%w: duplicate account %s/%s", ErrCorruptState, a.Owner.Hex(), a.Asset.Hex())
		}
		if sums[a.Asset]+a.Balance < sums[a.Asset] {
			return fmt.Errorf("%w: supply overflow in %s", ErrCorruptState, a.Asset.Hex())
		}
		sums[a.Asset] += a.Balance
		if a.Balance == 0 {
			continue
		}
		balances[key] = a.Balance
		owners[a.Owner] = struct{}{}
	}
	for asset, m := range mints {
		if m.supply != sums[asset] {
			return fmt.Errorf("%w: supply of %s is %d, balances sum to %d", ErrCorruptState, asset.Hex(), m.supply, sums[asset])
		}
	}

	derived := make(map[common.Address]common.Hash, len(st.Derived))
	for _, d := range st.Derived {
		if _, ok := l.programs[d.Program]; !ok {
			return fmt.Errorf("%w: %s derived by unregistered program %s", ErrCorruptState, d.Address.Hex(), d.Program.Hex())
		}
		derived[d.Address] = d.Program
	}

	l.balances = balances
	l.owners = owners
	l.mints = mints
	l.derived = derived
	return nil
}
