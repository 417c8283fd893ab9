package state

import (
	"fmt"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"loyaltyledger/crypto"
	"loyaltyledger/storage"
)

// Manager provides keyed access to the ledger state on top of a plain
// key-value store. Values are RLP encoded and keys are keccak hashed with a
// logical prefix, mirroring the storage union
// {Balance(account), Admin, TotalSupply, Name, Symbol, History(account),
// RewardRates, Stats(account)}.
//
// Writes are staged in an in-memory overlay and only reach the backing store
// on Commit. Reset discards the overlay. This gives the engine its
// all-or-nothing guarantee against a collaborator with no transactional
// semantics of its own.
//
// Manager is not safe for concurrent use; the engine serialises access.
type Manager struct {
	db    storage.Database
	dirty map[string][]byte
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:    db,
		dirty: make(map[string][]byte),
	}
}

var (
	adminKey      = []byte("loyalty/admin")
	supplyKey     = []byte("loyalty/supply")
	nameKey       = []byte("loyalty/name")
	symbolKey     = []byte("loyalty/symbol")
	ratesKey      = []byte("loyalty/rates")
	balancePrefix = []byte("loyalty/balance/")
	historyPrefix = []byte("loyalty/history/")
	statsPrefix   = []byte("loyalty/stats/")
)

func prefixedKey(prefix []byte, addr crypto.Address) []byte {
	buf := make([]byte, len(prefix)+crypto.AddressLength)
	copy(buf, prefix)
	copy(buf[len(prefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func instanceKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// get reads through the overlay first and falls back to the backing store.
// Missing keys return (nil, nil).
func (m *Manager) get(hashed []byte) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("state manager unavailable")
	}
	if value, ok := m.dirty[string(hashed)]; ok {
		return value, nil
	}
	return m.db.Get(hashed)
}

// set stages a write in the overlay.
func (m *Manager) set(hashed, value []byte) error {
	if m == nil {
		return fmt.Errorf("state manager unavailable")
	}
	m.dirty[string(hashed)] = value
	return nil
}

// Commit flushes all staged writes to the backing store in deterministic key
// order and clears the overlay. A backend failure mid-flush is fatal for the
// current operation; the engine discards the remaining overlay.
func (m *Manager) Commit() error {
	if m == nil {
		return fmt.Errorf("state manager unavailable")
	}
	keys := make([]string, 0, len(m.dirty))
	for key := range m.dirty {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := m.db.Put([]byte(key), m.dirty[key]); err != nil {
			return fmt.Errorf("state commit: %w", err)
		}
	}
	m.dirty = make(map[string][]byte)
	return nil
}

// Reset discards all staged writes.
func (m *Manager) Reset() {
	if m == nil {
		return
	}
	m.dirty = make(map[string][]byte)
}

// Admin returns the configured admin address. The boolean is false while the
// ledger is uninitialised.
func (m *Manager) Admin() (crypto.Address, bool, error) {
	data, err := m.get(instanceKey(adminKey))
	if err != nil {
		return crypto.Address{}, false, err
	}
	if len(data) == 0 {
		return crypto.Address{}, false, nil
	}
	addr, err := crypto.AddressFromBytes(data)
	if err != nil {
		return crypto.Address{}, false, fmt.Errorf("state: corrupt admin entry: %w", err)
	}
	return addr, true, nil
}

// SetAdmin stores the admin address. The engine enforces write-once.
func (m *Manager) SetAdmin(addr crypto.Address) error {
	return m.set(instanceKey(adminKey), addr.Bytes())
}

// TokenName returns the configured token name, defaulting when unset.
func (m *Manager) TokenName() (string, error) {
	data, err := m.get(instanceKey(nameKey))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return defaultTokenName, nil
	}
	return string(data), nil
}

// TokenSymbol returns the configured token symbol, defaulting when unset.
func (m *Manager) TokenSymbol() (string, error) {
	data, err := m.get(instanceKey(symbolKey))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return defaultTokenSymbol, nil
	}
	return string(data), nil
}

// SetTokenMetadata stores the token name and symbol.
func (m *Manager) SetTokenMetadata(name, symbol string) error {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return fmt.Errorf("state: token name must not be empty")
	}
	trimmedSymbol := strings.TrimSpace(symbol)
	if trimmedSymbol == "" {
		return fmt.Errorf("state: token symbol must not be empty")
	}
	if err := m.set(instanceKey(nameKey), []byte(trimmedName)); err != nil {
		return err
	}
	return m.set(instanceKey(symbolKey), []byte(trimmedSymbol))
}
