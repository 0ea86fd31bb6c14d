package ledger

import "github.com/ethereum/go-ethereum/common"

// Authorizer is a capability to act for an address. The interface is sealed:
// only user Signers and signers issued by a Program exist.
type Authorizer interface {
	Address() common.Address
	canSign(l *Ledger, account common.Address) bool
}

// Signer is a host-authenticated user identity. It can never sign for a
// program-derived address.
type Signer struct {
	addr common.Address
}

// NewSigner wraps an identity the caller has already authenticated.
func NewSigner(addr common.Address) Signer {
	return Signer{addr: addr}
}

func (s Signer) Address() common.Address {
	return s.addr
}

func (s Signer) canSign(l *Ledger, account common.Address) bool {
	if _, derived := l.derived[account]; derived {
		return false
	}
	return account == s.addr
}

type programSigner struct {
	addr    common.Address
	program common.Hash
}

func (s programSigner) Address() common.Address {
	return s.addr
}

func (s programSigner) canSign(l *Ledger, account common.Address) bool {
	owner, ok := l.derived[account]
	return ok && account == s.addr && owner == s.program
}
