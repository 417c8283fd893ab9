package loyalty

import (
	"math/big"
	"sync"
	"time"

	"loyaltyledger/core/events"
	"loyaltyledger/core/types"
	"loyaltyledger/crypto"
)

// State describes the full keyed storage surface the engine needs from the
// surrounding state implementation. Reads on absent keys return zero values;
// writes are staged and only become visible to later reads of the backing
// store after Commit. Reset discards staged writes.
type State interface {
	LedgerState
	HistoryState
	StatsState

	Admin() (crypto.Address, bool, error)
	SetAdmin(addr crypto.Address) error
	TokenName() (string, error)
	TokenSymbol() (string, error)
	SetTokenMetadata(name, symbol string) error
	RewardRates() (*RewardRates, error)
	SetRewardRates(rates *RewardRates) error

	Commit() error
	Reset()
}

// Clock supplies the timestamp recorded on transactions and stats. The host
// execution context owns time; the engine never reads the wall clock behind
// the caller's back unless the default clock is used.
type Clock interface {
	Now() uint64
}

// SystemClock reports the current unix time in seconds.
type SystemClock struct{}

// Now implements the Clock interface.
func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// Option customises engine construction.
type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithEmitter installs an event sink for successful mutating operations.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// Engine is the ledger service: the single component callers interact with.
// It orchestrates the reward policy, account ledger, transaction log and
// stats tracker to implement the public operations.
//
// All operations are serialised behind one coarse mutex. Transfer touches two
// accounts and must appear atomic to any third observer, so per-account
// locking is not an option here.
type Engine struct {
	mu      sync.Mutex
	state   State
	clock   Clock
	emitter events.Emitter

	ledger  *Ledger
	log     *Log
	tracker *Tracker
}

// NewEngine creates a ledger engine over the provided state.
func NewEngine(state State, opts ...Option) *Engine {
	e := &Engine{
		state:   state,
		clock:   SystemClock{},
		emitter: events.NoopEmitter{},
		ledger:  NewLedger(state),
		log:     NewLog(state),
		tracker: NewTracker(state),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// requireInitialized returns the admin address or ErrNotInitialized when the
// ledger has not been initialised yet.
func (e *Engine) requireInitialized() (crypto.Address, error) {
	admin, ok, err := e.state.Admin()
	if err != nil {
		return crypto.Address{}, err
	}
	if !ok {
		return crypto.Address{}, ErrNotInitialized
	}
	return admin, nil
}

// requireAdmin ensures the verified caller is the configured admin.
func (e *Engine) requireAdmin(caller crypto.Address) error {
	admin, ok, err := e.state.Admin()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAdminNotSet
	}
	if admin != caller {
		return ErrUnauthorized
	}
	return nil
}

// apply runs a mutating operation against the staged state. On any failure
// the staged writes are discarded so no sub-effect becomes observable; on
// success the writes are committed as one unit and the event is emitted.
func (e *Engine) apply(fn func() (events.Event, error)) error {
	evt, err := fn()
	if err != nil {
		e.state.Reset()
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Reset()
		return err
	}
	if evt != nil {
		e.emitter.Emit(evt)
	}
	return nil
}

// Initialize sets the admin, token metadata and reward rates. It may only
// succeed once per ledger instance.
func (e *Engine) Initialize(admin crypto.Address, name, symbol string, rates *RewardRates) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func() (events.Event, error) {
		if _, ok, err := e.state.Admin(); err != nil {
			return nil, err
		} else if ok {
			return nil, ErrAlreadyInitialized
		}
		if err := rates.Validate(); err != nil {
			return nil, err
		}
		if err := e.state.SetAdmin(admin); err != nil {
			return nil, err
		}
		if err := e.state.SetTokenMetadata(name, symbol); err != nil {
			return nil, err
		}
		if err := e.state.SetTotalSupply(big.NewInt(0)); err != nil {
			return nil, err
		}
		if err := e.state.SetRewardRates(rates.Clone().Normalize()); err != nil {
			return nil, err
		}
		return events.LedgerInitialized{Admin: admin, Name: name, Symbol: symbol}, nil
	})
}

// EarnPoints converts a purchase into points and credits the caller. The
// caller identity must already be verified by the host.
func (e *Engine) EarnPoints(user crypto.Address, purchaseAmount *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var points *big.Int
	err := e.apply(func() (events.Event, error) {
		if _, err := e.requireInitialized(); err != nil {
			return nil, err
		}
		rates, err := e.state.RewardRates()
		if err != nil {
			return nil, err
		}
		if rates == nil {
			return nil, ErrRatesNotSet
		}
		points, err = ComputePoints(purchaseAmount, rates)
		if err != nil {
			return nil, err
		}
		if err := e.ledger.Credit(user, points); err != nil {
			return nil, err
		}
		now := e.clock.Now()
		if err := e.tracker.Record(user, points, nil, now); err != nil {
			return nil, err
		}
		if err := e.log.Append(user, points, types.TxKindEarn, now); err != nil {
			return nil, err
		}
		return events.PointsEarned{
			User:           user,
			PurchaseAmount: new(big.Int).Set(purchaseAmount),
			Points:         new(big.Int).Set(points),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// RedeemPoints debits the caller's balance and shrinks the supply.
func (e *Engine) RedeemPoints(user crypto.Address, points *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func() (events.Event, error) {
		if _, err := e.requireInitialized(); err != nil {
			return nil, err
		}
		if points == nil || points.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		if err := e.ledger.Debit(user, points); err != nil {
			return nil, err
		}
		now := e.clock.Now()
		if err := e.tracker.Record(user, nil, points, now); err != nil {
			return nil, err
		}
		if err := e.log.Append(user, new(big.Int).Neg(points), types.TxKindRedeem, now); err != nil {
			return nil, err
		}
		return events.PointsRedeemed{User: user, Points: new(big.Int).Set(points)}, nil
	})
}

// Transfer moves points between two accounts without touching the supply.
// Stats are intentionally not updated for either party; the lifetime
// accumulators only track earn and redeem activity.
func (e *Engine) Transfer(from, to crypto.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func() (events.Event, error) {
		if _, err := e.requireInitialized(); err != nil {
			return nil, err
		}
		if err := e.ledger.Move(from, to, amount); err != nil {
			return nil, err
		}
		now := e.clock.Now()
		if err := e.log.Append(from, new(big.Int).Neg(amount), types.TxKindTransferOut, now); err != nil {
			return nil, err
		}
		if err := e.log.Append(to, amount, types.TxKindTransferIn, now); err != nil {
			return nil, err
		}
		return events.PointsTransferred{From: from, To: to, Amount: new(big.Int).Set(amount)}, nil
	})
}

// Mint credits new supply to an account. Admin only.
func (e *Engine) Mint(caller, to crypto.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func() (events.Event, error) {
		if err := e.requireAdmin(caller); err != nil {
			return nil, err
		}
		if amount == nil || amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		if err := e.ledger.Credit(to, amount); err != nil {
			return nil, err
		}
		if err := e.log.Append(to, amount, types.TxKindMint, e.clock.Now()); err != nil {
			return nil, err
		}
		return events.PointsMinted{To: to, Amount: new(big.Int).Set(amount)}, nil
	})
}

// Burn removes supply from an account. Admin only.
func (e *Engine) Burn(caller, from crypto.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func() (events.Event, error) {
		if err := e.requireAdmin(caller); err != nil {
			return nil, err
		}
		if amount == nil || amount.Sign() <= 0 {
			return nil, ErrInvalidAmount
		}
		if err := e.ledger.Debit(from, amount); err != nil {
			return nil, err
		}
		if err := e.log.Append(from, new(big.Int).Neg(amount), types.TxKindBurn, e.clock.Now()); err != nil {
			return nil, err
		}
		return events.PointsBurned{From: from, Amount: new(big.Int).Set(amount)}, nil
	})
}

// UpdateRewardRates replaces the reward configuration. Admin only.
func (e *Engine) UpdateRewardRates(caller crypto.Address, rates *RewardRates) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(func() (events.Event, error) {
		if err := e.requireAdmin(caller); err != nil {
			return nil, err
		}
		if err := rates.Validate(); err != nil {
			return nil, err
		}
		normalized := rates.Clone().Normalize()
		if err := e.state.SetRewardRates(normalized); err != nil {
			return nil, err
		}
		return events.RewardRatesUpdated{
			EarnRate:    new(big.Int).Set(normalized.EarnRate),
			MinPurchase: new(big.Int).Set(normalized.MinPurchase),
		}, nil
	})
}

// GetBalance returns the account balance, defaulting to zero.
func (e *Engine) GetBalance(addr crypto.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Balance(addr)
}

// GetUserStats returns the lifetime counters, defaulting to the zero record.
func (e *Engine) GetUserStats(addr crypto.Address) (*types.UserStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Stats(addr)
}

// GetTransactionHistory returns the bounded history, oldest first.
func (e *Engine) GetTransactionHistory(addr crypto.Address) ([]types.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.History(addr)
}

// GetTokenInfo reports the token metadata and circulating supply.
func (e *Engine) GetTokenInfo() (*types.TokenInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	name, err := e.state.TokenName()
	if err != nil {
		return nil, err
	}
	symbol, err := e.state.TokenSymbol()
	if err != nil {
		return nil, err
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return nil, err
	}
	return &types.TokenInfo{Name: name, Symbol: symbol, TotalSupply: supply}, nil
}

// GetRewardRates returns the configured rates or nil when unset.
func (e *Engine) GetRewardRates() (*RewardRates, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rates, err := e.state.RewardRates()
	if err != nil {
		return nil, err
	}
	return rates.Clone(), nil
}

// Initialized reports whether the ledger has been initialised.
func (e *Engine) Initialized() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok, err := e.state.Admin()
	return ok, err
}
