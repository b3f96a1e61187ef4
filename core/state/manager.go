package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"

	"nhbbridge/core/epoch"
	nhberrors "nhbbridge/core/errors"
	"nhbbridge/core/types"
	"nhbbridge/storage"
)

// Reader is the read-only state surface. Both the Manager and committed
// snapshots satisfy it.
type Reader interface {
	Get(key Key) ([]byte, bool, error)
	IterPrefix(prefix Key) (Iterator, error)
	StakeReader
}

// Manager is the single writer of node state. It layers a write log over the
// committed database: writes and deletes are buffered until Commit flushes
// them in one batch at the block boundary.
//
// Manager holds no locks. Exactly one goroutine, the state transition that
// owns it, may use a Manager at a time; read-only consumers must use View
// instead. Every read goes to the write log or the database, nothing is
// cached across calls.
type Manager struct {
	db      storage.Database
	pending map[string]pendingWrite
	journal []journalEntry
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// journalEntry remembers what the write log held for key before a Put or
// Delete replaced it.
type journalEntry struct {
	key     string
	prev    pendingWrite
	hadPrev bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string]pendingWrite)}
}

// Get returns the raw value stored under key and whether it exists.
func (m *Manager) Get(key Key) ([]byte, bool, error) {
	if key.IsEmpty() {
		return nil, false, fmt.Errorf("state: key must not be empty")
	}
	if write, ok := m.pending[key.String()]; ok {
		if write.deleted {
			return nil, false, nil
		}
		return append([]byte(nil), write.value...), true, nil
	}
	return dbGet(m.db, key)
}

// Has reports whether key exists.
func (m *Manager) Has(key Key) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// Put records a write of value under key.
func (m *Manager) Put(key Key, value []byte) error {
	if key.IsEmpty() {
		return fmt.Errorf("state: key must not be empty")
	}
	m.record(key.String(), pendingWrite{value: append([]byte(nil), value...)})
	return nil
}

// Delete records the removal of key. Deleting an absent key is a no-op.
func (m *Manager) Delete(key Key) error {
	if key.IsEmpty() {
		return fmt.Errorf("state: key must not be empty")
	}
	m.record(key.String(), pendingWrite{deleted: true})
	return nil
}

func (m *Manager) record(key string, write pendingWrite) {
	prev, ok := m.pending[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadPrev: ok})
	m.pending[key] = write
}

// Checkpoint marks the current position of the write log. Passing the
// returned value to RevertTo undoes every write made after it.
func (m *Manager) Checkpoint() int {
	return len(m.journal)
}

// RevertTo rolls the write log back to a checkpoint taken since the last
// Commit or Discard. Out of range checkpoints are ignored.
func (m *Manager) RevertTo(checkpoint int) {
	if checkpoint < 0 || checkpoint > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= checkpoint; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.pending[entry.key] = entry.prev
		} else {
			delete(m.pending, entry.key)
		}
	}
	m.journal = m.journal[:checkpoint]
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key Key, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.Put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key Key, out interface{}) (bool, error) {
	return kvGet(m, key, out)
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key Key) error {
	return m.Delete(key)
}

// IterPrefix enumerates every key strictly below prefix in ascending order,
// merging the write log over committed state. The iterator reflects the
// write log as of this call.
func (m *Manager) IterPrefix(prefix Key) (Iterator, error) {
	raw := prefix.scanPrefix()
	overlay := make([]overlayEntry, 0)
	for k, write := range m.pending {
		if bytes.HasPrefix([]byte(k), raw) {
			overlay = append(overlay, overlayEntry{key: []byte(k), value: write.value, deleted: write.deleted})
		}
	}
	sort.Slice(overlay, func(i, j int) bool { return bytes.Compare(overlay[i].key, overlay[j].key) < 0 })
	return newMergedIterator(m.db.NewIterator(raw), overlay), nil
}

// PendingWrites returns the number of keys touched since the last commit.
func (m *Manager) PendingWrites() int {
	return len(m.pending)
}

// Commit flushes the write log to the database atomically and returns the
// number of keys written or deleted.
func (m *Manager) Commit() (int, error) {
	if len(m.pending) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := new(leveldb.Batch)
	for _, k := range keys {
		write := m.pending[k]
		if write.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), write.value)
	}
	if err := m.db.Write(batch); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", nhberrors.ErrStorageIO, err)
	}
	m.pending = make(map[string]pendingWrite)
	m.journal = nil
	return len(keys), nil
}

// Discard drops every uncommitted write.
func (m *Manager) Discard() {
	m.pending = make(map[string]pendingWrite)
	m.journal = nil
}

// View returns a read-only snapshot of committed state. Uncommitted writes
// are not visible through it. Callers must Release the view.
func (m *Manager) View() (*View, error) {
	snap, err := m.db.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", nhberrors.ErrStorageIO, err)
	}
	return &View{snap: snap}, nil
}

func (m *Manager) CurrentEpoch() (epoch.Epoch, error) { return currentEpoch(m) }

func (m *Manager) TotalStakeAt(e epoch.Epoch) (types.Amount, error) { return totalStakeAt(m, e) }

// View is an immutable snapshot of committed state, safe to use from query
// goroutines while the writer keeps processing blocks.
type View struct {
	snap storage.Snapshot
}

func (v *View) Get(key Key) ([]byte, bool, error) {
	if key.IsEmpty() {
		return nil, false, fmt.Errorf("state: key must not be empty")
	}
	return dbGet(v.snap, key)
}

func (v *View) KVGet(key Key, out interface{}) (bool, error) {
	return kvGet(v, key, out)
}

func (v *View) IterPrefix(prefix Key) (Iterator, error) {
	return newMergedIterator(v.snap.NewIterator(prefix.scanPrefix()), nil), nil
}

func (v *View) CurrentEpoch() (epoch.Epoch, error) { return currentEpoch(v) }

func (v *View) TotalStakeAt(e epoch.Epoch) (types.Amount, error) { return totalStakeAt(v, e) }

// Release frees the underlying snapshot.
func (v *View) Release() {
	if v != nil && v.snap != nil {
		v.snap.Release()
	}
}

// ValueReader is the minimal lookup surface used by the typed read helpers.
type ValueReader interface {
	Get(key Key) ([]byte, bool, error)
}

func dbGet(db storage.Reader, key Key) ([]byte, bool, error) {
	value, err := db.Get(key.Bytes())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", nhberrors.ErrStorageIO, key, err)
	}
	return value, true, nil
}

func kvGet(r ValueReader, key Key, out interface{}) (bool, error) {
	data, ok, err := r.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", nhberrors.ErrDeserialization, key, err)
	}
	return true, nil
}
