package storage

import (
	"errors"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
)

func openBackends(t *testing.T) map[string]Database {
	t.Helper()
	ldb, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	t.Cleanup(ldb.Close)
	return map[string]Database{"memdb": NewMemDB(), "leveldb": ldb}
}

func collect(t *testing.T, it Iterator) []string {
	t.Helper()
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return keys
}

func TestDatabaseGetMissing(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			ok, err := db.Has([]byte("missing"))
			if err != nil || ok {
				t.Fatalf("unexpected has result: %v %v", ok, err)
			}
			if err := db.Delete([]byte("missing")); err != nil {
				t.Fatalf("delete missing key: %v", err)
			}
		})
	}
}

func TestDatabasePrefixIterationIsOrdered(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"b/2", "a/1", "b/1", "b/10", "c/1"} {
				if err := db.Put([]byte(key), []byte("v")); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			got := collect(t, db.NewIterator([]byte("b/")))
			want := []string{"b/1", "b/10", "b/2"}
			if len(got) != len(want) {
				t.Fatalf("unexpected keys: %v", got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("key %d: want %s got %s", i, want[i], got[i])
				}
			}
			if all := collect(t, db.NewIterator(nil)); len(all) != 5 {
				t.Fatalf("expected 5 keys, got %v", all)
			}
		})
	}
}

func TestDatabaseWriteBatch(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Put([]byte("stale"), []byte("x")); err != nil {
				t.Fatalf("put: %v", err)
			}
			batch := new(leveldb.Batch)
			batch.Put([]byte("k1"), []byte("v1"))
			batch.Put([]byte("k2"), []byte("v2"))
			batch.Delete([]byte("stale"))
			if err := db.Write(batch); err != nil {
				t.Fatalf("write: %v", err)
			}
			value, err := db.Get([]byte("k2"))
			if err != nil || string(value) != "v2" {
				t.Fatalf("unexpected k2: %q %v", value, err)
			}
			if _, err := db.Get([]byte("stale")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected stale key to be deleted, got %v", err)
			}
			if err := db.Write(nil); err != nil {
				t.Fatalf("nil batch: %v", err)
			}
		})
	}
}

func TestDatabaseSnapshotIsolation(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Put([]byte("k"), []byte("old")); err != nil {
				t.Fatalf("put: %v", err)
			}
			snap, err := db.Snapshot()
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			defer snap.Release()

			if err := db.Put([]byte("k"), []byte("new")); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := db.Put([]byte("k2"), []byte("added")); err != nil {
				t.Fatalf("put: %v", err)
			}
			value, err := snap.Get([]byte("k"))
			if err != nil || string(value) != "old" {
				t.Fatalf("snapshot observed write: %q %v", value, err)
			}
			if ok, _ := snap.Has([]byte("k2")); ok {
				t.Fatalf("snapshot observed new key")
			}
			if keys := collect(t, snap.NewIterator(nil)); len(keys) != 1 {
				t.Fatalf("unexpected snapshot keys: %v", keys)
			}
		})
	}
}

func TestMemDBGetReturnsCopy(t *testing.T) {
	db := NewMemDB()
	if err := db.Put([]byte("k"), []byte("abc")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	value[0] = 'z'
	again, _ := db.Get([]byte("k"))
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}
