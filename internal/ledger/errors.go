package ledger

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("authorizer cannot sign for account")
	ErrOverflow            = errors.New("balance overflow")
	ErrUnknownMint         = errors.New("unknown mint")
	ErrMintExists          = errors.New("mint already exists")
	ErrAddressInUse        = errors.New("address already in use")
	ErrNoViableBump        = errors.New("no viable bump for seeds")
	ErrProgramExists       = errors.New("program already registered")
	ErrInvalidSeeds        = errors.New("invalid seeds")
	ErrCorruptState        = errors.New("corrupt ledger state")
)
