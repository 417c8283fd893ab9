package rpc

import (
	"errors"

	"loyaltyledger/native/loyalty"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
	codeServerError    = -32000
)

// errorKind maps a ledger failure to its stable wire identifier.
func errorKind(err error) string {
	switch {
	case errors.Is(err, loyalty.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, loyalty.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, loyalty.ErrAdminNotSet):
		return "admin_not_set"
	case errors.Is(err, loyalty.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, loyalty.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, loyalty.ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, loyalty.ErrNoPointsEarned):
		return "no_points_earned"
	case errors.Is(err, loyalty.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, loyalty.ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, loyalty.ErrRatesNotSet):
		return "rates_not_set"
	case errors.Is(err, loyalty.ErrInvalidRates):
		return "invalid_rates"
	case errors.Is(err, loyalty.ErrOverflow):
		return "overflow"
	default:
		return "internal"
	}
}

// errorCode picks the JSON-RPC code for a ledger failure.
func errorCode(err error) int {
	if errors.Is(err, loyalty.ErrUnauthorized) {
		return codeUnauthorized
	}
	return codeServerError
}
