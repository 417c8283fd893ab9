package loyalty

import "errors"

var (
	ErrAlreadyInitialized  = errors.New("loyalty: already initialized")
	ErrNotInitialized      = errors.New("loyalty: not initialized")
	ErrAdminNotSet         = errors.New("loyalty: admin not set")
	ErrUnauthorized        = errors.New("loyalty: unauthorized")
	ErrInvalidAmount       = errors.New("loyalty: amount must be positive")
	ErrBelowMinimum        = errors.New("loyalty: purchase below minimum")
	ErrNoPointsEarned      = errors.New("loyalty: no points earned")
	ErrInsufficientBalance = errors.New("loyalty: insufficient balance")
	ErrSelfTransfer        = errors.New("loyalty: cannot transfer to self")
	ErrRatesNotSet         = errors.New("loyalty: reward rates not set")
	ErrInvalidRates        = errors.New("loyalty: invalid reward rates")
	ErrOverflow            = errors.New("loyalty: balance overflow")
)
