package loyalty_test

import (
	"errors"
	"math/big"
	"testing"

	"loyaltyledger/core/events"
	"loyaltyledger/core/state"
	"loyaltyledger/core/types"
	"loyaltyledger/crypto"
	"loyaltyledger/native/loyalty"
	"loyaltyledger/storage"
)

type fixedClock struct {
	now uint64
}

func (c *fixedClock) Now() uint64 { return c.now }

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

type fixture struct {
	db      *storage.MemDB
	engine  *loyalty.Engine
	clock   *fixedClock
	emitter *recordingEmitter
	admin   crypto.Address
	user    crypto.Address
	user2   crypto.Address
}

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	clock := &fixedClock{now: 1000}
	emitter := &recordingEmitter{}
	engine := loyalty.NewEngine(
		state.NewManager(db),
		loyalty.WithClock(clock),
		loyalty.WithEmitter(emitter),
	)
	return &fixture{
		db:      db,
		engine:  engine,
		clock:   clock,
		emitter: emitter,
		admin:   addr(0xAA),
		user:    addr(1),
		user2:   addr(2),
	}
}

func (f *fixture) initialize(t *testing.T) {
	t.Helper()
	err := f.engine.Initialize(f.admin, "Loyalty Points", "LP", loyalty.NewRewardRates(10, 50))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
}

func (f *fixture) mustBalance(t *testing.T, addr crypto.Address) *big.Int {
	t.Helper()
	balance, err := f.engine.GetBalance(addr)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return balance
}

func TestInitializeAndTokenInfo(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	info, err := f.engine.GetTokenInfo()
	if err != nil {
		t.Fatalf("token info: %v", err)
	}
	if info.Name != "Loyalty Points" || info.Symbol != "LP" {
		t.Fatalf("unexpected token info %+v", info)
	}
	if info.TotalSupply.Sign() != 0 {
		t.Fatalf("expected zero supply, got %s", info.TotalSupply)
	}
}

func TestTokenInfoDefaultsBeforeInitialize(t *testing.T) {
	f := newFixture(t)
	info, err := f.engine.GetTokenInfo()
	if err != nil {
		t.Fatalf("token info: %v", err)
	}
	if info.Name != "Loyalty Points" || info.Symbol != "LP" || info.TotalSupply.Sign() != 0 {
		t.Fatalf("unexpected defaults %+v", info)
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	err := f.engine.Initialize(f.admin, "Other", "OT", loyalty.NewRewardRates(5, 0))
	if !errors.Is(err, loyalty.ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestOperationsRequireInitialization(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); !errors.Is(err, loyalty.ErrNotInitialized) {
		t.Fatalf("earn: expected ErrNotInitialized, got %v", err)
	}
	if err := f.engine.RedeemPoints(f.user, big.NewInt(1)); !errors.Is(err, loyalty.ErrNotInitialized) {
		t.Fatalf("redeem: expected ErrNotInitialized, got %v", err)
	}
	if err := f.engine.Transfer(f.user, f.user2, big.NewInt(1)); !errors.Is(err, loyalty.ErrNotInitialized) {
		t.Fatalf("transfer: expected ErrNotInitialized, got %v", err)
	}
	if err := f.engine.Mint(f.admin, f.user, big.NewInt(1)); !errors.Is(err, loyalty.ErrAdminNotSet) {
		t.Fatalf("mint: expected ErrAdminNotSet, got %v", err)
	}
}

func TestEarnAndRedeemPoints(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	points, err := f.engine.EarnPoints(f.user, big.NewInt(100))
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if points.Int64() != 10 {
		t.Fatalf("expected 10 points, got %s", points)
	}
	if got := f.mustBalance(t, f.user); got.Int64() != 10 {
		t.Fatalf("expected balance 10, got %s", got)
	}

	if err := f.engine.RedeemPoints(f.user, big.NewInt(5)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got := f.mustBalance(t, f.user); got.Int64() != 5 {
		t.Fatalf("expected balance 5, got %s", got)
	}

	info, err := f.engine.GetTokenInfo()
	if err != nil {
		t.Fatalf("token info: %v", err)
	}
	if info.TotalSupply.Int64() != 5 {
		t.Fatalf("expected supply 5, got %s", info.TotalSupply)
	}
}

func TestEarnBelowMinimumLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(30)); !errors.Is(err, loyalty.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if got := f.mustBalance(t, f.user); got.Sign() != 0 {
		t.Fatalf("expected untouched balance, got %s", got)
	}
	stats, err := f.engine.GetUserStats(f.user)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TransactionCount != 0 {
		t.Fatalf("failed earn must not count a transaction")
	}
	history, err := f.engine.GetTransactionHistory(f.user)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("failed earn must not append history")
	}
}

func TestRedeemInsufficientIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	statsBefore, _ := f.engine.GetUserStats(f.user)
	historyBefore, _ := f.engine.GetTransactionHistory(f.user)

	if err := f.engine.RedeemPoints(f.user, big.NewInt(50)); !errors.Is(err, loyalty.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if got := f.mustBalance(t, f.user); got.Int64() != 10 {
		t.Fatalf("failed redeem changed balance to %s", got)
	}
	statsAfter, _ := f.engine.GetUserStats(f.user)
	if statsAfter.TransactionCount != statsBefore.TransactionCount {
		t.Fatalf("failed redeem changed stats")
	}
	historyAfter, _ := f.engine.GetTransactionHistory(f.user)
	if len(historyAfter) != len(historyBefore) {
		t.Fatalf("failed redeem changed history")
	}
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	supplyBefore, _ := f.engine.GetTokenInfo()

	if err := f.engine.Transfer(f.user, f.user2, big.NewInt(3)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.mustBalance(t, f.user); got.Int64() != 7 {
		t.Fatalf("expected sender balance 7, got %s", got)
	}
	if got := f.mustBalance(t, f.user2); got.Int64() != 3 {
		t.Fatalf("expected recipient balance 3, got %s", got)
	}
	supplyAfter, _ := f.engine.GetTokenInfo()
	if supplyAfter.TotalSupply.Cmp(supplyBefore.TotalSupply) != 0 {
		t.Fatalf("transfer changed supply: %s -> %s", supplyBefore.TotalSupply, supplyAfter.TotalSupply)
	}
}

func TestTransferRecordsHistoryOnBothSides(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.clock.now = 4242

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if err := f.engine.Transfer(f.user, f.user2, big.NewInt(3)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	senderHistory, _ := f.engine.GetTransactionHistory(f.user)
	if len(senderHistory) != 2 {
		t.Fatalf("expected 2 sender records, got %d", len(senderHistory))
	}
	out := senderHistory[1]
	if out.Kind != types.TxKindTransferOut || out.Amount.Int64() != -3 || out.Timestamp != 4242 {
		t.Fatalf("unexpected transfer_out record %+v", out)
	}

	recipientHistory, _ := f.engine.GetTransactionHistory(f.user2)
	if len(recipientHistory) != 1 {
		t.Fatalf("expected 1 recipient record, got %d", len(recipientHistory))
	}
	in := recipientHistory[0]
	if in.Kind != types.TxKindTransferIn || in.Amount.Int64() != 3 {
		t.Fatalf("unexpected transfer_in record %+v", in)
	}
}

func TestTransferDoesNotTouchStats(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if err := f.engine.Transfer(f.user, f.user2, big.NewInt(3)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	senderStats, _ := f.engine.GetUserStats(f.user)
	if senderStats.TransactionCount != 1 {
		t.Fatalf("transfer must not count towards sender stats, got %d", senderStats.TransactionCount)
	}
	recipientStats, _ := f.engine.GetUserStats(f.user2)
	if recipientStats.TransactionCount != 0 {
		t.Fatalf("transfer must not count towards recipient stats, got %d", recipientStats.TransactionCount)
	}
}

func TestTransferToSelfFails(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if err := f.engine.Transfer(f.user, f.user, big.NewInt(1)); !errors.Is(err, loyalty.ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestMintRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if err := f.engine.Mint(f.user, f.user2, big.NewInt(5)); !errors.Is(err, loyalty.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := f.mustBalance(t, f.user2); got.Sign() != 0 {
		t.Fatalf("unauthorized mint changed balance to %s", got)
	}
	info, _ := f.engine.GetTokenInfo()
	if info.TotalSupply.Sign() != 0 {
		t.Fatalf("unauthorized mint changed supply to %s", info.TotalSupply)
	}
}

func TestMintAndBurn(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if err := f.engine.Mint(f.admin, f.user, big.NewInt(20)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := f.mustBalance(t, f.user); got.Int64() != 20 {
		t.Fatalf("expected balance 20, got %s", got)
	}

	if err := f.engine.Burn(f.admin, f.user, big.NewInt(8)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := f.mustBalance(t, f.user); got.Int64() != 12 {
		t.Fatalf("expected balance 12, got %s", got)
	}
	info, _ := f.engine.GetTokenInfo()
	if info.TotalSupply.Int64() != 12 {
		t.Fatalf("expected supply 12, got %s", info.TotalSupply)
	}

	stats, _ := f.engine.GetUserStats(f.user)
	if stats.TransactionCount != 0 {
		t.Fatalf("mint and burn must not count towards stats, got %d", stats.TransactionCount)
	}
	history, _ := f.engine.GetTransactionHistory(f.user)
	if len(history) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history))
	}
	if history[0].Kind != types.TxKindMint || history[1].Kind != types.TxKindBurn {
		t.Fatalf("unexpected history kinds %v/%v", history[0].Kind, history[1].Kind)
	}
	if history[1].Amount.Int64() != -8 {
		t.Fatalf("expected burn amount -8, got %s", history[1].Amount)
	}
}

func TestBurnMoreThanBalanceFails(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if err := f.engine.Mint(f.admin, f.user, big.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.engine.Burn(f.admin, f.user, big.NewInt(6)); !errors.Is(err, loyalty.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := f.mustBalance(t, f.user); got.Int64() != 5 {
		t.Fatalf("failed burn changed balance to %s", got)
	}
}

func TestUpdateRewardRates(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if err := f.engine.UpdateRewardRates(f.user, loyalty.NewRewardRates(5, 0)); !errors.Is(err, loyalty.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.engine.UpdateRewardRates(f.admin, loyalty.NewRewardRates(5, 0)); err != nil {
		t.Fatalf("update rates: %v", err)
	}

	points, err := f.engine.EarnPoints(f.user, big.NewInt(100))
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if points.Int64() != 20 {
		t.Fatalf("expected 20 points under new rate, got %s", points)
	}
}

func TestHistoryEvictionThroughEngine(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if err := f.engine.Mint(f.admin, f.user, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// The mint is record one; ten redeems push the window past capacity.
	for i := 0; i < loyalty.HistoryCapacity; i++ {
		if err := f.engine.RedeemPoints(f.user, big.NewInt(int64(i+1))); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}

	history, err := f.engine.GetTransactionHistory(f.user)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != loyalty.HistoryCapacity {
		t.Fatalf("expected %d records, got %d", loyalty.HistoryCapacity, len(history))
	}
	if history[0].Kind != types.TxKindRedeem {
		t.Fatalf("expected mint record evicted, head kind %v", history[0].Kind)
	}
}

func TestStatsAccumulateAcrossOperations(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	f.clock.now = 100

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	f.clock.now = 200
	if _, err := f.engine.EarnPoints(f.user, big.NewInt(200)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	f.clock.now = 300
	if err := f.engine.RedeemPoints(f.user, big.NewInt(12)); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	stats, err := f.engine.GetUserStats(f.user)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEarned.Int64() != 30 {
		t.Fatalf("expected total earned 30, got %s", stats.TotalEarned)
	}
	if stats.TotalRedeemed.Int64() != 12 {
		t.Fatalf("expected total redeemed 12, got %s", stats.TotalRedeemed)
	}
	if stats.TransactionCount != 3 {
		t.Fatalf("expected 3 transactions, got %d", stats.TransactionCount)
	}
	if stats.LastActivity != 300 {
		t.Fatalf("expected last activity 300, got %d", stats.LastActivity)
	}
}

func TestEventsEmittedOnSuccessOnly(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if _, err := f.engine.EarnPoints(f.user, big.NewInt(30)); !errors.Is(err, loyalty.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}

	var kinds []string
	for _, evt := range f.emitter.events {
		kinds = append(kinds, evt.EventType())
	}
	want := []string{events.TypeLedgerInitialized, events.TypePointsEarned}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}

	earned, ok := f.emitter.events[1].(events.PointsEarned)
	if !ok {
		t.Fatalf("expected PointsEarned event, got %T", f.emitter.events[1])
	}
	if earned.Points.Int64() != 10 || earned.PurchaseAmount.Int64() != 100 {
		t.Fatalf("unexpected event payload %+v", earned)
	}
}

func TestReadsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	if _, err := f.engine.EarnPoints(f.user, big.NewInt(100)); err != nil {
		t.Fatalf("earn: %v", err)
	}

	lenBefore := f.db.Len()
	for i := 0; i < 3; i++ {
		if _, err := f.engine.GetBalance(f.user); err != nil {
			t.Fatalf("get balance: %v", err)
		}
		if _, err := f.engine.GetUserStats(f.user); err != nil {
			t.Fatalf("get stats: %v", err)
		}
		if _, err := f.engine.GetTransactionHistory(f.user); err != nil {
			t.Fatalf("get history: %v", err)
		}
		if _, err := f.engine.GetTokenInfo(); err != nil {
			t.Fatalf("get token info: %v", err)
		}
	}
	if f.db.Len() != lenBefore {
		t.Fatalf("reads mutated the store: %d -> %d", lenBefore, f.db.Len())
	}
}

func TestSupplyMatchesBalanceSum(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)

	if _, err := f.engine.EarnPoints(f.user, big.NewInt(500)); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if err := f.engine.Mint(f.admin, f.user2, big.NewInt(7)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.engine.Transfer(f.user, f.user2, big.NewInt(13)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := f.engine.RedeemPoints(f.user2, big.NewInt(4)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := f.engine.Burn(f.admin, f.user, big.NewInt(2)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	sum := big.NewInt(0)
	for _, account := range []crypto.Address{f.admin, f.user, f.user2} {
		sum.Add(sum, f.mustBalance(t, account))
	}
	info, err := f.engine.GetTokenInfo()
	if err != nil {
		t.Fatalf("token info: %v", err)
	}
	if info.TotalSupply.Cmp(sum) != 0 {
		t.Fatalf("supply %s does not match balance sum %s", info.TotalSupply, sum)
	}
}
