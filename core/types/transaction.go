package types

import "math/big"

// TxKind tags the kind of ledger event a transaction record describes.
type TxKind byte

const (
	TxKindEarn        TxKind = 0x01 // points earned against a purchase
	TxKindRedeem      TxKind = 0x02 // points redeemed by the holder
	TxKindTransferIn  TxKind = 0x03 // points received from another account
	TxKindTransferOut TxKind = 0x04 // points sent to another account
	TxKindMint        TxKind = 0x05 // supply minted by the admin
	TxKindBurn        TxKind = 0x06 // supply burned by the admin
)

// String returns the canonical tag used on the wire and in events.
func (k TxKind) String() string {
	switch k {
	case TxKindEarn:
		return "earn"
	case TxKindRedeem:
		return "redeem"
	case TxKindTransferIn:
		return "transfer_in"
	case TxKindTransferOut:
		return "transfer_out"
	case TxKindMint:
		return "mint"
	case TxKindBurn:
		return "burn"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is one of the defined tags.
func (k TxKind) Valid() bool {
	return k >= TxKindEarn && k <= TxKindBurn
}

// Transaction is a single immutable entry in an account's bounded history.
// Amount is positive for credits and negative for debits.
type Transaction struct {
	Amount    *big.Int `json:"amount"`
	Kind      TxKind   `json:"kind"`
	Timestamp uint64   `json:"timestamp"`
}

// Clone returns a deep copy of the record.
func (tx Transaction) Clone() Transaction {
	clone := Transaction{Kind: tx.Kind, Timestamp: tx.Timestamp}
	if tx.Amount != nil {
		clone.Amount = new(big.Int).Set(tx.Amount)
	}
	return clone
}
