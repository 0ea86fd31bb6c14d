package model

// PoolMeta captures the immutable pool fields attached to decoded events.
type PoolMeta struct {
	PoolID    uint64 `json:"pool_id"`
	AssetX    string `json:"asset_x"`
	AssetY    string `json:"asset_y"`
	ShareMint string `json:"share_mint"`
	FeeBps    uint16 `json:"fee_bps"`
}
