package types

import "math/big"

// TokenInfo describes the loyalty token and its circulating supply.
type TokenInfo struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	TotalSupply *big.Int `json:"totalSupply"`
}
