package loyalty

import (
	"math/big"

	"loyaltyledger/core/types"
	"loyaltyledger/crypto"
)

// HistoryState describes the transaction history storage used by the log.
type HistoryState interface {
	History(addr crypto.Address) ([]types.Transaction, error)
	SetHistory(addr crypto.Address, history []types.Transaction) error
}

// Log maintains the bounded per-account transaction history: records append
// at the tail and, once the capacity is exceeded, the oldest entry is evicted
// from the head. It is a recent-transaction window, not a full audit log.
type Log struct {
	state HistoryState
}

// NewLog creates a transaction log over the provided state.
func NewLog(state HistoryState) *Log {
	return &Log{state: state}
}

// Append records a transaction for the account. Amount carries the sign of
// the balance change (positive credit, negative debit).
func (l *Log) Append(addr crypto.Address, amount *big.Int, kind types.TxKind, timestamp uint64) error {
	history, err := l.state.History(addr)
	if err != nil {
		return err
	}
	record := types.Transaction{
		Amount:    new(big.Int).Set(amount),
		Kind:      kind,
		Timestamp: timestamp,
	}
	history = append(history, record)
	if len(history) > HistoryCapacity {
		history = history[len(history)-HistoryCapacity:]
	}
	return l.state.SetHistory(addr, history)
}
