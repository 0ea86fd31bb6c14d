package model

// Event names as they appear in the pool ABI.
const (
	EventPoolInitialized = "PoolInitialized"
	EventDeposit         = "Deposit"
	EventWithdraw        = "Withdraw"
	EventSwap            = "Swap"
	EventLockChanged     = "LockChanged"
)

// PoolInitializedEventData is the decoded PoolInitialized payload.
type PoolInitializedEventData struct {
	Initializer string `json:"initializer"`
	PoolID      uint64 `json:"pool_id"`
	AssetX      string `json:"asset_x"`
	AssetY      string `json:"asset_y"`
	ShareMint   string `json:"share_mint"`
	FeeBps      uint16 `json:"fee_bps"`
	Authority   string `json:"authority,omitempty"`
}

// LiquidityEventData is the decoded Deposit or Withdraw payload.
// Reserves and supply are the values after the operation.
type LiquidityEventData struct {
	Owner       string `json:"owner"`
	Shares      string `json:"shares"`
	AmountX     string `json:"amount_x"`
	AmountY     string `json:"amount_y"`
	ReserveX    string `json:"reserve_x"`
	ReserveY    string `json:"reserve_y"`
	ShareSupply string `json:"share_supply"`
}

// SwapEventData is the decoded Swap payload.
type SwapEventData struct {
	Trader    string `json:"trader"`
	XToY      bool   `json:"x_to_y"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Fee       string `json:"fee"`
	ReserveX  string `json:"reserve_x"`
	ReserveY  string `json:"reserve_y"`
}

// LockChangedEventData is the decoded LockChanged payload.
type LockChangedEventData struct {
	Authority string `json:"authority"`
	Locked    bool   `json:"locked"`
}
