package types

import "math/big"

// UserStats aggregates lifetime counters for one account. Accounts that never
// transacted read as the zero-value record.
type UserStats struct {
	TotalEarned      *big.Int `json:"totalEarned"`
	TotalRedeemed    *big.Int `json:"totalRedeemed"`
	TransactionCount uint64   `json:"transactionCount"`
	LastActivity     uint64   `json:"lastActivity"`
}

// NewUserStats returns an all-zero stats record.
func NewUserStats() *UserStats {
	return &UserStats{
		TotalEarned:   big.NewInt(0),
		TotalRedeemed: big.NewInt(0),
	}
}

// Clone returns a deep copy of the stats record.
func (s *UserStats) Clone() *UserStats {
	if s == nil {
		return NewUserStats()
	}
	clone := &UserStats{
		TransactionCount: s.TransactionCount,
		LastActivity:     s.LastActivity,
		TotalEarned:      big.NewInt(0),
		TotalRedeemed:    big.NewInt(0),
	}
	if s.TotalEarned != nil {
		clone.TotalEarned.Set(s.TotalEarned)
	}
	if s.TotalRedeemed != nil {
		clone.TotalRedeemed.Set(s.TotalRedeemed)
	}
	return clone
}
