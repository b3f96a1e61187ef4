package storage

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Iterator walks a key range in ascending byte order. Key and Value are only
// valid until the next call to Next; callers that retain them must copy.
// Release must be called once the iterator is no longer needed.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Reader is the read half of a key-value store.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// NewIterator returns an iterator over every key starting with prefix.
	// A nil prefix iterates the whole keyspace.
	NewIterator(prefix []byte) Iterator
}

// Snapshot is an immutable point-in-time view of a Database.
type Snapshot interface {
	Reader
	Release()
}

// Database is a generic interface for an ordered key-value store.
// This allows the node to use any database backend (in-memory or persistent).
type Database interface {
	Reader
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	// Write applies every operation recorded in the batch atomically.
	Write(batch *leveldb.Batch) error
	Snapshot() (Snapshot, error)
	Close() // A way to gracefully shut down the database connection.
}

// --- In-Memory DB (for testing) ---

// MemDB keeps keys sorted in a goleveldb memdb skiplist so prefix scans
// observe the same ordering as the persistent backend.
type MemDB struct {
	mu sync.RWMutex
	db *memdb.DB
}

func NewMemDB() *MemDB {
	return &MemDB{db: memdb.New(comparer.DefaultComparer, 0)}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.db.Put(key, value)
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return memGet(db.db, key)
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.db.Contains(key), nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	err := db.db.Delete(key)
	if errors.Is(err, memdb.ErrNotFound) {
		return nil
	}
	return err
}

func (db *MemDB) NewIterator(prefix []byte) Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.db.NewIterator(util.BytesPrefix(prefix))
}

// Write replays the batch while holding the write lock so readers never
// observe a partially applied batch.
func (db *MemDB) Write(batch *leveldb.Batch) error {
	if batch == nil {
		return nil
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	replay := &memReplay{db: db.db}
	if err := batch.Replay(replay); err != nil {
		return err
	}
	return replay.err
}

// Snapshot copies the current contents into a detached memdb.
func (db *MemDB) Snapshot() (Snapshot, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	copied := memdb.New(comparer.DefaultComparer, db.db.Size())
	it := db.db.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		if err := copied.Put(it.Key(), it.Value()); err != nil {
			return nil, err
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return &memSnapshot{db: copied}, nil
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

type memReplay struct {
	db  *memdb.DB
	err error
}

func (r *memReplay) Put(key, value []byte) {
	if r.err != nil {
		return
	}
	r.err = r.db.Put(key, value)
}

func (r *memReplay) Delete(key []byte) {
	if r.err != nil {
		return
	}
	if err := r.db.Delete(key); err != nil && !errors.Is(err, memdb.ErrNotFound) {
		r.err = err
	}
}

type memSnapshot struct {
	db *memdb.DB
}

func (s *memSnapshot) Get(key []byte) ([]byte, error) { return memGet(s.db, key) }

func (s *memSnapshot) Has(key []byte) (bool, error) { return s.db.Contains(key), nil }

func (s *memSnapshot) NewIterator(prefix []byte) Iterator {
	return s.db.NewIterator(util.BytesPrefix(prefix))
}

func (s *memSnapshot) Release() {}

func memGet(db *memdb.DB, key []byte) ([]byte, error) {
	value, err := db.Get(key)
	if errors.Is(err, memdb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), value...), nil
}

// --- Persistent DB (for mainnet) ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return levelGet(ldb.db.Get(key, nil))
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

func (ldb *LevelDB) NewIterator(prefix []byte) Iterator {
	return ldb.db.NewIterator(util.BytesPrefix(prefix), nil)
}

func (ldb *LevelDB) Write(batch *leveldb.Batch) error {
	if batch == nil {
		return nil
	}
	return ldb.db.Write(batch, nil)
}

func (ldb *LevelDB) Snapshot() (Snapshot, error) {
	snap, err := ldb.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &levelSnapshot{snap: snap}, nil
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}

type levelSnapshot struct {
	snap *leveldb.Snapshot
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) { return levelGet(s.snap.Get(key, nil)) }

func (s *levelSnapshot) Has(key []byte) (bool, error) { return s.snap.Has(key, nil) }

func (s *levelSnapshot) NewIterator(prefix []byte) Iterator {
	return s.snap.NewIterator(util.BytesPrefix(prefix), nil)
}

func (s *levelSnapshot) Release() { s.snap.Release() }

func levelGet(value []byte, err error) ([]byte, error) {
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}
