package loyalty

import (
	"fmt"
	"math/big"
)

const (
	// HistoryCapacity bounds the per-account transaction history. Appends
	// beyond the capacity evict the oldest record first.
	HistoryCapacity = 10
	// MaxBalanceBits bounds balances and the total supply. Results that
	// would exceed this width fail with ErrOverflow instead of wrapping.
	MaxBalanceBits = 256
)

const (
	// DefaultTokenName is reported by token-info queries before the ledger
	// is initialised.
	DefaultTokenName = "Loyalty Points"
	// DefaultTokenSymbol is the matching default symbol.
	DefaultTokenSymbol = "LP"
)

// RewardRates configures the conversion from purchase amounts to points.
// EarnRate is the divisor (one point per EarnRate units spent) and
// MinPurchase is the threshold below which no points accrue.
type RewardRates struct {
	EarnRate    *big.Int
	MinPurchase *big.Int
}

// NewRewardRates builds a rates record from plain integers. Used by config
// loading and tests.
func NewRewardRates(earnRate, minPurchase int64) *RewardRates {
	return &RewardRates{
		EarnRate:    big.NewInt(earnRate),
		MinPurchase: big.NewInt(minPurchase),
	}
}

// Clone produces a deep copy of the rates.
func (r *RewardRates) Clone() *RewardRates {
	if r == nil {
		return nil
	}
	clone := &RewardRates{}
	if r.EarnRate != nil {
		clone.EarnRate = new(big.Int).Set(r.EarnRate)
	}
	if r.MinPurchase != nil {
		clone.MinPurchase = new(big.Int).Set(r.MinPurchase)
	}
	return clone
}

// Normalize ensures all pointer fields are non-nil. The method returns the
// receiver to allow chaining.
func (r *RewardRates) Normalize() *RewardRates {
	if r == nil {
		return nil
	}
	if r.EarnRate == nil {
		r.EarnRate = big.NewInt(0)
	}
	if r.MinPurchase == nil {
		r.MinPurchase = big.NewInt(0)
	}
	return r
}

// Validate performs static validation of the rates record.
func (r *RewardRates) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil rates", ErrInvalidRates)
	}
	if r.EarnRate == nil || r.EarnRate.Sign() <= 0 {
		return fmt.Errorf("%w: earn rate must be positive", ErrInvalidRates)
	}
	if r.MinPurchase != nil && r.MinPurchase.Sign() < 0 {
		return fmt.Errorf("%w: min purchase must not be negative", ErrInvalidRates)
	}
	return nil
}
