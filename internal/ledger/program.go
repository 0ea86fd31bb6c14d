package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	maxSeeds   = 16
	maxSeedLen = 32
)

var derivationMarker = []byte("ProgramDerivedAddress")

// Program owns the addresses it derives. Signers for those addresses can only
// be obtained through the Program handle returned by RegisterProgram.
type Program struct {
	id     common.Hash
	name   string
	ledger *Ledger
}

// RegisterProgram registers a program by name. A name can be registered once
// per ledger so exactly one handle exists for its derived addresses.
func (l *Ledger) RegisterProgram(name string) (*Program, error) {
	id := crypto.Keccak256Hash([]byte(name))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.programs[id]; ok {
		return nil, fmt.Errorf("%s: %w", name, ErrProgramExists)
	}
	l.programs[id] = name
	return &Program{id: id, name: name, ledger: l}, nil
}

// ID returns the program identifier mixed into every derived address.
func (p *Program) ID() common.Hash {
	return p.id
}

// CreateAddress derives the address for seeds and bump. It does not check
// whether the address is allocated.
func (p *Program) CreateAddress(bump uint8, seeds ...[]byte) (common.Address, error) {
	if len(seeds) > maxSeeds {
		return common.Address{}, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}
	parts := make([][]byte, 0, 2*len(seeds)+3)
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return common.Address{}, fmt.Errorf("%w: seed length %d", ErrInvalidSeeds, len(seed))
		}
		parts = append(parts, []byte{byte(len(seed))}, seed)
	}
	parts = append(parts, []byte{bump}, p.id.Bytes(), derivationMarker)
	return common.BytesToAddress(crypto.Keccak256(parts...)[12:]), nil
}

// FindAddress returns the canonical address for seeds: the one with the
// highest bump that is not already in use on the ledger.
func (p *Program) FindAddress(seeds ...[]byte) (common.Address, uint8, error) {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	return p.canonical(nil, seeds...)
}

// canonical walks bumps down from 255 and returns the first address that is
// neither in use nor in skip. Callers hold p.ledger.mu.
func (p *Program) canonical(skip map[common.Address]struct{}, seeds ...[]byte) (common.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := p.CreateAddress(uint8(bump), seeds...)
		if err != nil {
			return common.Address{}, 0, err
		}
		if _, skipped := skip[addr]; skipped {
			continue
		}
		if !p.ledger.inUse(addr) {
			return addr, uint8(bump), nil
		}
	}
	return common.Address{}, 0, ErrNoViableBump
}

// Allocate claims the address for seeds and bump as owned by this program.
func (p *Program) Allocate(bump uint8, seeds ...[]byte) (common.Address, error) {
	addr, err := p.CreateAddress(bump, seeds...)
	if err != nil {
		return common.Address{}, err
	}

	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	if p.ledger.inUse(addr) {
		return common.Address{}, fmt.Errorf("allocate %s: %w", addr.Hex(), ErrAddressInUse)
	}
	p.ledger.derived[addr] = p.id
	return addr, nil
}

// AllocateCanonical finds the canonical address for seeds and allocates it
// in one step.
func (p *Program) AllocateCanonical(seeds ...[]byte) (common.Address, uint8, error) {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()

	addr, bump, err := p.canonical(nil, seeds...)
	if err != nil {
		return common.Address{}, 0, err
	}
	p.ledger.derived[addr] = p.id
	return addr, bump, nil
}

// Custody is a program-owned account together with the mint it controls.
type Custody struct {
	Address     common.Address
	AddressBump uint8
	Mint        common.Address
	MintBump    uint8
}

// AllocateCustody allocates the canonical address for seeds, then the
// canonical mint address for mintSeeds(address), and creates the mint with
// the custody address as its authority. The ledger records nothing unless
// every step succeeds.
func (p *Program) AllocateCustody(seeds [][]byte, mintSeeds func(common.Address) [][]byte, decimals uint8) (Custody, error) {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()

	addr, addrBump, err := p.canonical(nil, seeds...)
	if err != nil {
		return Custody{}, fmt.Errorf("custody address: %w", err)
	}
	mint, mintBump, err := p.canonical(map[common.Address]struct{}{addr: {}}, mintSeeds(addr)...)
	if err != nil {
		return Custody{}, fmt.Errorf("custody mint: %w", err)
	}

	p.ledger.derived[addr] = p.id
	p.ledger.derived[mint] = p.id
	p.ledger.mints[mint] = &mintInfo{authority: addr, decimals: decimals, issued: true}
	return Custody{Address: addr, AddressBump: addrBump, Mint: mint, MintBump: mintBump}, nil
}

// Signer re-derives the address for seeds and bump and returns a capability
// to act for it. The address must have been allocated by this program.
func (p *Program) Signer(bump uint8, seeds ...[]byte) (Authorizer, error) {
	addr, err := p.CreateAddress(bump, seeds...)
	if err != nil {
		return nil, err
	}

	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	if owner, ok := p.ledger.derived[addr]; !ok || owner != p.id {
		return nil, fmt.Errorf("sign for %s: %w", addr.Hex(), ErrUnauthorized)
	}
	return programSigner{addr: addr, program: p.id}, nil
}

// InitializeMint creates a mint at an address allocated by this program.
// The mint starts at zero supply with the given authority.
func (p *Program) InitializeMint(mint, authority common.Address, decimals uint8) error {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()

	if owner, ok := p.ledger.derived[mint]; !ok || owner != p.id {
		return fmt.Errorf("initialize mint %s: %w", mint.Hex(), ErrUnauthorized)
	}
	if _, ok := p.ledger.mints[mint]; ok {
		return fmt.Errorf("initialize mint %s: %w", mint.Hex(), ErrMintExists)
	}
	p.ledger.mints[mint] = &mintInfo{authority: authority, decimals: decimals, issued: true}
	return nil
}
