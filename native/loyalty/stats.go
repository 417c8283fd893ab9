package loyalty

import (
	"math/big"

	"loyaltyledger/core/types"
	"loyaltyledger/crypto"
)

// StatsState describes the aggregate counter storage used by the tracker.
type StatsState interface {
	Stats(addr crypto.Address) (*types.UserStats, error)
	SetStats(addr crypto.Address, stats *types.UserStats) error
}

// Tracker owns the per-account lifetime counters. Records are created lazily
// on the first mutating operation for an account.
type Tracker struct {
	state StatsState
}

// NewTracker creates a stats tracker over the provided state.
func NewTracker(state StatsState) *Tracker {
	return &Tracker{state: state}
}

// Record adds the supplied non-negative deltas to the lifetime accumulators,
// bumps the transaction counter and stamps the latest activity time.
func (t *Tracker) Record(addr crypto.Address, earned, redeemed *big.Int, timestamp uint64) error {
	stats, err := t.state.Stats(addr)
	if err != nil {
		return err
	}
	stats = stats.Clone()
	if earned != nil && earned.Sign() > 0 {
		stats.TotalEarned.Add(stats.TotalEarned, earned)
	}
	if redeemed != nil && redeemed.Sign() > 0 {
		stats.TotalRedeemed.Add(stats.TotalRedeemed, redeemed)
	}
	stats.TransactionCount++
	stats.LastActivity = timestamp
	return t.state.SetStats(addr, stats)
}
