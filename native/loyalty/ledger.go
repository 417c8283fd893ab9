package loyalty

import (
	"fmt"
	"math/big"

	"loyaltyledger/crypto"
)

// LedgerState describes the balance and supply storage the account ledger
// needs from the surrounding state implementation.
type LedgerState interface {
	Balance(addr crypto.Address) (*big.Int, error)
	SetBalance(addr crypto.Address, balance *big.Int) error
	TotalSupply() (*big.Int, error)
	SetTotalSupply(total *big.Int) error
}

// Ledger owns the per-account balances and the total supply counter. Every
// successful mutation preserves the conservation invariant: the total supply
// equals the sum of all balances and no balance is ever negative.
type Ledger struct {
	state LedgerState
}

// NewLedger creates an account ledger over the provided state.
func NewLedger(state LedgerState) *Ledger {
	return &Ledger{state: state}
}

func checkWidth(v *big.Int) error {
	if v.BitLen() > MaxBalanceBits {
		return ErrOverflow
	}
	return nil
}

// Credit increases the account balance and the total supply by amount.
func (l *Ledger) Credit(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.Balance(addr)
	if err != nil {
		return err
	}
	supply, err := l.state.TotalSupply()
	if err != nil {
		return err
	}
	newBalance := new(big.Int).Add(balance, amount)
	newSupply := new(big.Int).Add(supply, amount)
	if err := checkWidth(newBalance); err != nil {
		return err
	}
	if err := checkWidth(newSupply); err != nil {
		return err
	}
	if err := l.state.SetBalance(addr, newBalance); err != nil {
		return err
	}
	return l.state.SetTotalSupply(newSupply)
}

// Debit decreases the account balance and the total supply by amount. The
// debit fails with ErrInsufficientBalance when the balance cannot cover it.
func (l *Ledger) Debit(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.Balance(addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.state.TotalSupply()
	if err != nil {
		return err
	}
	newSupply := new(big.Int).Sub(supply, amount)
	if newSupply.Sign() < 0 {
		return fmt.Errorf("loyalty: supply underflow for %s", addr)
	}
	if err := l.state.SetBalance(addr, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return l.state.SetTotalSupply(newSupply)
}

// Move atomically debits from and credits to without changing the total
// supply. All preconditions are checked before the first write so a failure
// leaves both accounts untouched.
func (l *Ledger) Move(from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}
	fromBalance, err := l.state.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.state.Balance(to)
	if err != nil {
		return err
	}
	newToBalance := new(big.Int).Add(toBalance, amount)
	if err := checkWidth(newToBalance); err != nil {
		return err
	}
	if err := l.state.SetBalance(from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.SetBalance(to, newToBalance)
}
