package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"halochain/storage"
)

// Manager provides typed access to ledger state over a key-value store. All
// values are RLP encoded. A transition overlay buffers writes so a failing
// entry point rolls back without touching the underlying store.
type Manager struct {
	db      storage.Database
	overlay map[string]overlayEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transition overlay. Writes land in the overlay until Commit
// flushes them or Revert discards them. Transitions do not nest; the ledger
// serializes entry points.
func (m *Manager) Begin() {
	m.overlay = make(map[string]overlayEntry)
}

// Commit flushes the open overlay to the database.
func (m *Manager) Commit() error {
	if m.overlay == nil {
		return nil
	}
	for key, entry := range m.overlay {
		if entry.deleted {
			if err := m.db.Delete([]byte(key)); err != nil {
				return fmt.Errorf("state: commit delete %q: %w", key, err)
			}
			continue
		}
		if err := m.db.Put([]byte(key), entry.value); err != nil {
			return fmt.Errorf("state: commit put %q: %w", key, err)
		}
	}
	m.overlay = nil
	return nil
}

// Revert discards the open overlay.
func (m *Manager) Revert() {
	m.overlay = nil
}

func (m *Manager) rawGet(key []byte) ([]byte, bool, error) {
	if m.overlay != nil {
		if entry, ok := m.overlay[string(key)]; ok {
			if entry.deleted {
				return nil, false, nil
			}
			return entry.value, true, nil
		}
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) rawPut(key, value []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = overlayEntry{value: value}
		return nil
	}
	return m.db.Put(key, value)
}

func (m *Manager) rawDelete(key []byte) error {
	if m.overlay != nil {
		m.overlay[string(key)] = overlayEntry{deleted: true}
		return nil
	}
	return m.db.Delete(key)
}

// KVPut RLP-encodes value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.rawPut(key, encoded)
}

// KVGet decodes the value stored under key into out, reporting presence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	data, ok, err := m.rawGet(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVDelete removes key if present.
func (m *Manager) KVDelete(key []byte) error {
	return m.rawDelete(key)
}

// ModuleAddress derives a deterministic address for an internal module
// account, e.g. the default treasury vault.
func ModuleAddress(name string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("halochain/module/" + name))
	var addr [20]byte
	copy(addr[:], hash[len(hash)-20:])
	return addr
}
