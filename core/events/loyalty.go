package events

import (
	"math/big"

	"loyaltyledger/crypto"
)

const (
	// TypeLedgerInitialized is emitted once when the ledger is initialised.
	TypeLedgerInitialized = "loyalty.ledger.initialized"
	// TypePointsEarned is emitted when a purchase accrues points.
	TypePointsEarned = "loyalty.points.earned"
	// TypePointsRedeemed is emitted when a holder redeems points.
	TypePointsRedeemed = "loyalty.points.redeemed"
	// TypePointsTransferred is emitted when points move between accounts.
	TypePointsTransferred = "loyalty.points.transferred"
	// TypePointsMinted is emitted when the admin mints new supply.
	TypePointsMinted = "loyalty.points.minted"
	// TypePointsBurned is emitted when the admin burns supply.
	TypePointsBurned = "loyalty.points.burned"
	// TypeRewardRatesUpdated is emitted when the admin replaces the rates.
	TypeRewardRatesUpdated = "loyalty.rates.updated"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// LedgerInitialized captures the genesis parameters of the ledger.
type LedgerInitialized struct {
	Admin  crypto.Address
	Name   string
	Symbol string
}

func (LedgerInitialized) EventType() string { return TypeLedgerInitialized }

func (e LedgerInitialized) Attributes() map[string]string {
	return map[string]string{
		"admin":  e.Admin.String(),
		"name":   e.Name,
		"symbol": e.Symbol,
	}
}

// PointsEarned reports a successful earn operation.
type PointsEarned struct {
	User           crypto.Address
	PurchaseAmount *big.Int
	Points         *big.Int
}

func (PointsEarned) EventType() string { return TypePointsEarned }

func (e PointsEarned) Attributes() map[string]string {
	return map[string]string{
		"user":           e.User.String(),
		"purchaseAmount": amountString(e.PurchaseAmount),
		"points":         amountString(e.Points),
	}
}

// PointsRedeemed reports a successful redeem operation.
type PointsRedeemed struct {
	User   crypto.Address
	Points *big.Int
}

func (PointsRedeemed) EventType() string { return TypePointsRedeemed }

func (e PointsRedeemed) Attributes() map[string]string {
	return map[string]string{
		"user":   e.User.String(),
		"points": amountString(e.Points),
	}
}

// PointsTransferred reports a balance move between two accounts.
type PointsTransferred struct {
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
}

func (PointsTransferred) EventType() string { return TypePointsTransferred }

func (e PointsTransferred) Attributes() map[string]string {
	return map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": amountString(e.Amount),
	}
}

// PointsMinted reports supply minted to an account.
type PointsMinted struct {
	To     crypto.Address
	Amount *big.Int
}

func (PointsMinted) EventType() string { return TypePointsMinted }

func (e PointsMinted) Attributes() map[string]string {
	return map[string]string{
		"to":     e.To.String(),
		"amount": amountString(e.Amount),
	}
}

// PointsBurned reports supply burned from an account.
type PointsBurned struct {
	From   crypto.Address
	Amount *big.Int
}

func (PointsBurned) EventType() string { return TypePointsBurned }

func (e PointsBurned) Attributes() map[string]string {
	return map[string]string{
		"from":   e.From.String(),
		"amount": amountString(e.Amount),
	}
}

// RewardRatesUpdated reports the replacement of the reward configuration.
type RewardRatesUpdated struct {
	EarnRate    *big.Int
	MinPurchase *big.Int
}

func (RewardRatesUpdated) EventType() string { return TypeRewardRatesUpdated }

func (e RewardRatesUpdated) Attributes() map[string]string {
	return map[string]string{
		"earnRate":    amountString(e.EarnRate),
		"minPurchase": amountString(e.MinPurchase),
	}
}
