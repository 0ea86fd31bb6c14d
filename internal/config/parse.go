package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a 0x-prefixed hex address. The zero address is rejected.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	addr := common.HexToAddress(input)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address not allowed")
	}
	return addr, nil
}

// ParseOptionalAddress is ParseAddress that maps an empty input to nil.
func ParseOptionalAddress(input string) (*common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	addr, err := ParseAddress(input)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
