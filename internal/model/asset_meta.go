package model

// AssetMeta captures ERC20 metadata for a pool asset.
type AssetMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
