package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolEventsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "initializer", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "poolId", "type": "uint64"},
      {"indexed": false, "internalType": "address", "name": "assetX", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "assetY", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "shareMint", "type": "address"},
      {"indexed": false, "internalType": "uint16", "name": "feeBps", "type": "uint16"},
      {"indexed": false, "internalType": "address", "name": "authority", "type": "address"}
    ],
    "name": "PoolInitialized",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "shares", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "shareSupply", "type": "uint64"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "owner", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "shares", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "shareSupply", "type": "uint64"}
    ],
    "name": "Withdraw",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "xToY", "type": "bool"},
      {"indexed": false, "internalType": "uint64", "name": "amountIn", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountOut", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "fee", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "authority", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "locked", "type": "bool"}
    ],
    "name": "LockChanged",
    "type": "event"
  }
]`

var (
	poolEventsABI     abi.ABI
	poolEventsABIOnce sync.Once
	poolEventsABIErr  error
)

// PoolEventsABI returns the parsed pool event ABI.
func PoolEventsABI() (abi.ABI, error) {
	poolEventsABIOnce.Do(func() {
		poolEventsABI, poolEventsABIErr = abi.JSON(strings.NewReader(poolEventsABIJSON))
	})
	return poolEventsABI, poolEventsABIErr
}
