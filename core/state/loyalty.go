package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"loyaltyledger/core/types"
	"loyaltyledger/crypto"
	"loyaltyledger/native/loyalty"
)

const (
	defaultTokenName   = loyalty.DefaultTokenName
	defaultTokenSymbol = loyalty.DefaultTokenSymbol
)

var _ loyalty.State = (*Manager)(nil)

// storedTransaction is the RLP wire form of a history record. RLP cannot
// encode negative big integers, so the sign travels as a separate flag.
type storedTransaction struct {
	Amount    *big.Int
	Debit     bool
	Kind      uint8
	Timestamp uint64
}

type storedStats struct {
	TotalEarned      *big.Int
	TotalRedeemed    *big.Int
	TransactionCount uint64
	LastActivity     uint64
}

type storedRates struct {
	EarnRate    *big.Int
	MinPurchase *big.Int
}

// History returns the account's bounded transaction history, oldest first.
// Missing entries default to an empty sequence.
func (m *Manager) History(addr crypto.Address) ([]types.Transaction, error) {
	data, err := m.get(prefixedKey(historyPrefix, addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []types.Transaction{}, nil
	}
	var stored []storedTransaction
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, fmt.Errorf("state: decode history for %s: %w", addr, err)
	}
	history := make([]types.Transaction, 0, len(stored))
	for _, tx := range stored {
		amount := new(big.Int)
		if tx.Amount != nil {
			amount.Set(tx.Amount)
		}
		if tx.Debit {
			amount.Neg(amount)
		}
		history = append(history, types.Transaction{
			Amount:    amount,
			Kind:      types.TxKind(tx.Kind),
			Timestamp: tx.Timestamp,
		})
	}
	return history, nil
}

// SetHistory stages the account's transaction history.
func (m *Manager) SetHistory(addr crypto.Address, history []types.Transaction) error {
	stored := make([]storedTransaction, 0, len(history))
	for _, tx := range history {
		amount := new(big.Int)
		if tx.Amount != nil {
			amount.Set(tx.Amount)
		}
		debit := amount.Sign() < 0
		if debit {
			amount.Neg(amount)
		}
		stored = append(stored, storedTransaction{
			Amount:    amount,
			Debit:     debit,
			Kind:      uint8(tx.Kind),
			Timestamp: tx.Timestamp,
		})
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.set(prefixedKey(historyPrefix, addr), encoded)
}

// Stats returns the account's lifetime counters. Missing entries default to
// the all-zero record.
func (m *Manager) Stats(addr crypto.Address) (*types.UserStats, error) {
	data, err := m.get(prefixedKey(statsPrefix, addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return types.NewUserStats(), nil
	}
	stored := new(storedStats)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("state: decode stats for %s: %w", addr, err)
	}
	stats := types.NewUserStats()
	if stored.TotalEarned != nil {
		stats.TotalEarned.Set(stored.TotalEarned)
	}
	if stored.TotalRedeemed != nil {
		stats.TotalRedeemed.Set(stored.TotalRedeemed)
	}
	stats.TransactionCount = stored.TransactionCount
	stats.LastActivity = stored.LastActivity
	return stats, nil
}

// SetStats stages the account's lifetime counters.
func (m *Manager) SetStats(addr crypto.Address, stats *types.UserStats) error {
	stats = stats.Clone()
	encoded, err := rlp.EncodeToBytes(&storedStats{
		TotalEarned:      stats.TotalEarned,
		TotalRedeemed:    stats.TotalRedeemed,
		TransactionCount: stats.TransactionCount,
		LastActivity:     stats.LastActivity,
	})
	if err != nil {
		return err
	}
	return m.set(prefixedKey(statsPrefix, addr), encoded)
}

// RewardRates returns the stored reward configuration or nil when unset.
func (m *Manager) RewardRates() (*loyalty.RewardRates, error) {
	data, err := m.get(instanceKey(ratesKey))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	stored := new(storedRates)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("state: decode reward rates: %w", err)
	}
	return (&loyalty.RewardRates{
		EarnRate:    stored.EarnRate,
		MinPurchase: stored.MinPurchase,
	}).Normalize(), nil
}

// SetRewardRates stages the reward configuration.
func (m *Manager) SetRewardRates(rates *loyalty.RewardRates) error {
	if rates == nil {
		return fmt.Errorf("state: reward rates must not be nil")
	}
	normalized := rates.Clone().Normalize()
	encoded, err := rlp.EncodeToBytes(&storedRates{
		EarnRate:    normalized.EarnRate,
		MinPurchase: normalized.MinPurchase,
	})
	if err != nil {
		return err
	}
	return m.set(instanceKey(ratesKey), encoded)
}
