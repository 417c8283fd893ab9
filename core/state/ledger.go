package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"loyaltyledger/crypto"
)

// Balance returns the account's point balance. Missing entries default to
// zero.
func (m *Manager) Balance(addr crypto.Address) (*big.Int, error) {
	data, err := m.get(prefixedKey(balancePrefix, addr))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, fmt.Errorf("state: decode balance for %s: %w", addr, err)
	}
	return balance, nil
}

// SetBalance stages the account balance. Negative balances are rejected here
// as a last line of defence; the ledger checks before calling.
func (m *Manager) SetBalance(addr crypto.Address, balance *big.Int) error {
	if balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Sign() < 0 {
		return fmt.Errorf("state: balance for %s cannot be negative", addr)
	}
	encoded, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return err
	}
	return m.set(prefixedKey(balancePrefix, addr), encoded)
}

// TotalSupply returns the circulating supply. Missing entries default to
// zero.
func (m *Manager) TotalSupply() (*big.Int, error) {
	data, err := m.get(instanceKey(supplyKey))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	total := new(big.Int)
	if err := rlp.DecodeBytes(data, total); err != nil {
		return nil, fmt.Errorf("state: decode total supply: %w", err)
	}
	return total, nil
}

// SetTotalSupply stages the circulating supply.
func (m *Manager) SetTotalSupply(total *big.Int) error {
	if total == nil {
		total = big.NewInt(0)
	}
	if total.Sign() < 0 {
		return fmt.Errorf("state: total supply cannot be negative")
	}
	encoded, err := rlp.EncodeToBytes(total)
	if err != nil {
		return err
	}
	return m.set(instanceKey(supplyKey), encoded)
}
