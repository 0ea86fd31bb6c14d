package ledger

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice  = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	tokenA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func mustFund(t *testing.T, l *Ledger, owner, asset common.Address, amount uint64) {
	t.Helper()
	if err := l.Fund(owner, asset, amount); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func TestFundTracksSupply(t *testing.T) {
	l := New()
	mustFund(t, l, alice, tokenA, 100)
	mustFund(t, l, bob, tokenA, 50)

	if got := l.Balance(alice, tokenA); got != 100 {
		t.Fatalf("alice balance = %d", got)
	}
	if got := l.Supply(tokenA); got != 150 {
		t.Fatalf("supply = %d", got)
	}
}

func TestBatchMoveAllOrNothing(t *testing.T) {
	l := New()
	mustFund(t, l, alice, tokenA, 100)
	mustFund(t, l, alice, tokenB, 10)

	err := l.NewBatch().
		Move(tokenA, alice, bob, 60, NewSigner(alice)).
		Move(tokenB, alice, bob, 11, NewSigner(alice)).
		Commit()
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := l.Balance(alice, tokenA); got != 100 {
		t.Fatalf("first leg leaked: alice tokenA = %d", got)
	}
	if got := l.Balance(bob, tokenA); got != 0 {
		t.Fatalf("first leg leaked: bob tokenA = %d", got)
	}

	if err := l.NewBatch().
		Move(tokenA, alice, bob, 60, NewSigner(alice)).
		Move(tokenB, alice, bob, 10, NewSigner(alice)).
		Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if l.Balance(alice, tokenA) != 40 || l.Balance(bob, tokenA) != 60 || l.Balance(bob, tokenB) != 10 {
		t.Fatalf("unexpected balances after commit")
	}
}

func TestBatchRejectsForeignSigner(t *testing.T) {
	l := New()
	mustFund(t, l, alice, tokenA, 100)

	err := l.NewBatch().Move(tokenA, alice, bob, 1, NewSigner(bob)).Commit()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestProgramAddressesAreDeterministic(t *testing.T) {
	l := New()
	p, err := l.RegisterProgram("pool")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	seeds := [][]byte{[]byte("vault"), tokenA.Bytes()}

	addr, bump, err := p.FindAddress(seeds...)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if bump != 255 {
		t.Fatalf("bump = %d, want 255 on an empty ledger", bump)
	}
	again, err := p.CreateAddress(bump, seeds...)
	if err != nil || again != addr {
		t.Fatalf("re-derive mismatch: %s vs %s (%v)", again.Hex(), addr.Hex(), err)
	}

	if _, err := p.Allocate(bump, seeds...); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := p.Allocate(bump, seeds...); !errors.Is(err, ErrAddressInUse) {
		t.Fatalf("expected address in use, got %v", err)
	}
	_, next, err := p.FindAddress(seeds...)
	if err != nil || next >= bump {
		t.Fatalf("expected a lower bump after allocation, got %d (%v)", next, err)
	}
}

func TestDuplicateProgramRejected(t *testing.T) {
	l := New()
	if _, err := l.RegisterProgram("pool"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := l.RegisterProgram("pool"); !errors.Is(err, ErrProgramExists) {
		t.Fatalf("expected program exists, got %v", err)
	}
}

func TestSeedLimits(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")
	if _, err := p.CreateAddress(0, make([]byte, 33)); !errors.Is(err, ErrInvalidSeeds) {
		t.Fatalf("expected invalid seeds for long seed, got %v", err)
	}
	many := make([][]byte, 17)
	if _, err := p.CreateAddress(0, many...); !errors.Is(err, ErrInvalidSeeds) {
		t.Fatalf("expected invalid seeds for seed count, got %v", err)
	}
}

func TestProgramCustody(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")
	other, _ := l.RegisterProgram("other")

	vault, bump, _ := p.FindAddress([]byte("vault"))
	if _, err := p.Allocate(bump, []byte("vault")); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	mustFund(t, l, alice, tokenA, 100)
	if err := l.NewBatch().Move(tokenA, alice, vault, 100, NewSigner(alice)).Commit(); err != nil {
		t.Fatalf("deposit into vault: %v", err)
	}

	// A user claiming the vault address cannot move its funds.
	err := l.NewBatch().Move(tokenA, vault, bob, 1, NewSigner(vault)).Commit()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("user signer moved program custody: %v", err)
	}
	if _, err := other.Signer(bump, []byte("vault")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign program obtained signer: %v", err)
	}
	if _, err := p.Signer(bump, []byte("vault")); err != nil {
		t.Fatalf("signer: %v", err)
	}

	auth, _ := p.Signer(bump, []byte("vault"))
	if err := l.NewBatch().Move(tokenA, vault, bob, 30, auth).Commit(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := l.Balance(bob, tokenA); got != 30 {
		t.Fatalf("bob balance = %d", got)
	}
}

func TestMintAndBurn(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")

	authority, aBump, _ := p.FindAddress([]byte("authority"))
	if _, err := p.Allocate(aBump, []byte("authority")); err != nil {
		t.Fatalf("allocate authority: %v", err)
	}
	mint, mBump, _ := p.FindAddress([]byte("shares"))
	if _, err := p.Allocate(mBump, []byte("shares")); err != nil {
		t.Fatalf("allocate mint: %v", err)
	}
	if err := p.InitializeMint(mint, authority, 6); err != nil {
		t.Fatalf("initialize mint: %v", err)
	}
	if err := p.InitializeMint(mint, authority, 6); !errors.Is(err, ErrMintExists) {
		t.Fatalf("expected mint exists, got %v", err)
	}
	if err := l.Fund(alice, mint, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("fund of issued mint: %v", err)
	}

	if err := l.NewBatch().Mint(mint, alice, 10, NewSigner(alice)).Commit(); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("user minted shares: %v", err)
	}

	auth, _ := p.Signer(aBump, []byte("authority"))
	if err := l.NewBatch().Mint(mint, alice, 10, auth).Commit(); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.NewBatch().Burn(mint, alice, 4, NewSigner(alice)).Commit(); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if l.Supply(mint) != 6 || l.Balance(alice, mint) != 6 {
		t.Fatalf("supply=%d balance=%d", l.Supply(mint), l.Balance(alice, mint))
	}
	if err := l.NewBatch().Burn(mint, alice, 7, NewSigner(alice)).Commit(); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")
	vault, bump, _ := p.FindAddress([]byte("vault"))
	_, _ = p.Allocate(bump, []byte("vault"))
	mustFund(t, l, alice, tokenA, 100)
	mustFund(t, l, bob, tokenB, 7)
	if err := l.NewBatch().Move(tokenA, alice, vault, 40, NewSigner(alice)).Commit(); err != nil {
		t.Fatalf("move: %v", err)
	}
	st := l.Export()

	restored := New()
	if _, err := restored.RegisterProgram("pool"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := restored.Import(st); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !reflect.DeepEqual(restored.Export(), st) {
		t.Fatalf("round trip mismatch")
	}
	if _, err := p.Signer(bump, []byte("vault")); err != nil {
		t.Fatalf("signer after export: %v", err)
	}
}

func TestImportRejectsCorruptState(t *testing.T) {
	l := New()
	st := State{
		Accounts: []AccountState{{Owner: alice, Asset: tokenA, Balance: 10}},
		Mints:    []MintState{{Asset: tokenA, Supply: 11}},
	}
	if err := l.Import(st); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected corrupt state, got %v", err)
	}

	st = State{Derived: []DerivedState{{Address: alice}}}
	if err := l.Import(st); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected corrupt state for unknown program, got %v", err)
	}
}

func TestAllocateCanonicalSkipsUsedAddresses(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")
	want, _, _ := p.FindAddress([]byte("vault"))
	mustFund(t, l, want, tokenA, 1)

	got, bump, err := p.AllocateCanonical([]byte("vault"))
	if err != nil {
		t.Fatalf("allocate canonical: %v", err)
	}
	if got == want || bump != 254 {
		t.Fatalf("expected the next bump, got %s bump %d", got.Hex(), bump)
	}
	if _, err := p.Signer(bump, []byte("vault")); err != nil {
		t.Fatalf("signer: %v", err)
	}
}

func mintSeeds(owner common.Address) [][]byte {
	return [][]byte{[]byte("shares"), owner.Bytes()}
}

func TestAllocateCustody(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")
	wantAddr, wantBump, _ := p.FindAddress([]byte("vault"))

	c, err := p.AllocateCustody([][]byte{[]byte("vault")}, mintSeeds, 6)
	if err != nil {
		t.Fatalf("allocate custody: %v", err)
	}
	if c.Address != wantAddr || c.AddressBump != wantBump {
		t.Fatalf("custody address = %s/%d, want %s/%d", c.Address.Hex(), c.AddressBump, wantAddr.Hex(), wantBump)
	}
	if mint, err := p.CreateAddress(c.MintBump, mintSeeds(c.Address)...); err != nil || mint != c.Mint {
		t.Fatalf("mint does not re-derive: %s %v", mint.Hex(), err)
	}
	authority, _, ok := l.MintAuthority(c.Mint)
	if !ok || authority != c.Address {
		t.Fatalf("mint authority = %s ok=%v", authority.Hex(), ok)
	}
	if _, err := p.Signer(c.AddressBump, []byte("vault")); err != nil {
		t.Fatalf("custody signer: %v", err)
	}
}

func TestAllocateCustodyRecordsNothingOnFailure(t *testing.T) {
	l := New()
	p, _ := l.RegisterProgram("pool")
	badMintSeeds := func(common.Address) [][]byte {
		return [][]byte{make([]byte, maxSeedLen+1)}
	}

	if _, err := p.AllocateCustody([][]byte{[]byte("vault")}, badMintSeeds, 6); !errors.Is(err, ErrInvalidSeeds) {
		t.Fatalf("expected invalid seeds, got %v", err)
	}
	addr, bump, err := p.FindAddress([]byte("vault"))
	if err != nil || bump != 255 {
		t.Fatalf("custody address left allocated: bump %d err %v", bump, err)
	}
	if _, err := p.Signer(bump, []byte("vault")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected no signer for %s, got %v", addr.Hex(), err)
	}
}
