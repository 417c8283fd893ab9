package loyalty

import "math/big"

// ComputePoints converts a purchase amount into points using the configured
// rates. It is pure: identical inputs always yield identical outputs and no
// state is touched.
//
// The conversion uses integer floor division; a purchase smaller than the
// earn rate yields zero points and fails with ErrNoPointsEarned.
func ComputePoints(purchaseAmount *big.Int, rates *RewardRates) (*big.Int, error) {
	if purchaseAmount == nil || purchaseAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if rates == nil {
		return nil, ErrRatesNotSet
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	normalized := rates.Clone().Normalize()
	if purchaseAmount.Cmp(normalized.MinPurchase) < 0 {
		return nil, ErrBelowMinimum
	}
	points := new(big.Int).Quo(purchaseAmount, normalized.EarnRate)
	if points.Sign() <= 0 {
		return nil, ErrNoPointsEarned
	}
	return points, nil
}
