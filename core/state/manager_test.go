package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	nhberrors "nhbbridge/core/errors"
	"nhbbridge/storage"
)

func newTestManager(t *testing.T) (*Manager, storage.Database) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db), db
}

func iterKeys(t *testing.T, it Iterator) []string {
	t.Helper()
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, it.Key().String())
	}
	require.NoError(t, it.Error())
	return keys
}

func TestManagerWriteLogVisibility(t *testing.T) {
	mgr, db := newTestManager(t)
	key := NewKey("a", "b")
	require.NoError(t, mgr.Put(key, []byte("v1")))

	value, ok, err := mgr.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)

	if _, err := db.Get(key.Bytes()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("write reached the database before commit: %v", err)
	}
	require.Equal(t, 1, mgr.PendingWrites())

	written, err := mgr.Commit()
	require.NoError(t, err)
	require.Equal(t, 1, written)
	require.Equal(t, 0, mgr.PendingWrites())

	stored, err := db.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), stored)
}

func TestManagerDeleteShadowsCommittedValue(t *testing.T) {
	mgr, db := newTestManager(t)
	key := NewKey("a", "b")
	require.NoError(t, mgr.Put(key, []byte("v1")))
	_, err := mgr.Commit()
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(key))
	ok, err := mgr.Has(key)
	require.NoError(t, err)
	require.False(t, ok)

	mgr.Discard()
	ok, err = mgr.Has(key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mgr.Delete(key))
	_, err = mgr.Commit()
	require.NoError(t, err)
	if _, err := db.Get(key.Bytes()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected key to be deleted, got %v", err)
	}
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.Put(Key{}, []byte("x"))
	require.ErrorContains(t, err, "state: key must not be empty")
	_, _, err = mgr.Get(Key{})
	require.ErrorContains(t, err, "state: key must not be empty")
	require.ErrorContains(t, mgr.Delete(Key{}), "state: key must not be empty")
}

func TestManagerIterPrefixMergesWriteLog(t *testing.T) {
	mgr, _ := newTestManager(t)
	for _, seg := range []string{"1", "3", "5"} {
		require.NoError(t, mgr.Put(NewKey("p", seg), []byte("committed")))
	}
	require.NoError(t, mgr.Put(NewKey("q", "1"), []byte("other")))
	_, err := mgr.Commit()
	require.NoError(t, err)

	require.NoError(t, mgr.Put(NewKey("p", "2"), []byte("pending")))
	require.NoError(t, mgr.Put(NewKey("p", "5"), []byte("overwritten")))
	require.NoError(t, mgr.Delete(NewKey("p", "3")))

	it, err := mgr.IterPrefix(NewKey("p"))
	require.NoError(t, err)
	defer it.Release()

	var got []string
	values := map[string]string{}
	for it.Next() {
		got = append(got, it.Key().String())
		values[it.Key().String()] = string(it.Value())
	}
	require.NoError(t, it.Error())
	require.Equal(t, []string{"p/1", "p/2", "p/5"}, got)
	require.Equal(t, "overwritten", values["p/5"])
	require.Equal(t, "pending", values["p/2"])
}

func TestManagerIterPrefixEarlyRelease(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Put(NewKey("p", "1"), []byte("x")))
	require.NoError(t, mgr.Put(NewKey("p", "2"), []byte("y")))
	it, err := mgr.IterPrefix(NewKey("p"))
	require.NoError(t, err)
	require.True(t, it.Next())
	it.Release()
	it.Release()
	require.False(t, it.Next())
}

func TestViewIgnoresPendingWrites(t *testing.T) {
	mgr, _ := newTestManager(t)
	key := NewKey("a")
	require.NoError(t, mgr.Put(key, []byte("committed")))
	_, err := mgr.Commit()
	require.NoError(t, err)

	view, err := mgr.View()
	require.NoError(t, err)
	defer view.Release()

	require.NoError(t, mgr.Put(key, []byte("pending")))
	require.NoError(t, mgr.Put(NewKey("b"), []byte("pending")))
	_, err = mgr.Commit()
	require.NoError(t, err)

	value, ok, err := view.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("committed"), value)

	it, err := view.IterPrefix(Key{})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, iterKeys(t, it))
}

func TestKVGetCorruptValue(t *testing.T) {
	mgr, _ := newTestManager(t)
	key := NewKey("corrupt")
	require.NoError(t, mgr.Put(key, []byte{0xc1}))
	var out uint64
	_, err := mgr.KVGet(key, &out)
	if !errors.Is(err, nhberrors.ErrDeserialization) {
		t.Fatalf("expected ErrDeserialization, got %v", err)
	}
}

func TestManagerRevertToCheckpoint(t *testing.T) {
	mgr, _ := newTestManager(t)
	kept := NewKey("a", "kept")
	overwritten := NewKey("a", "overwritten")
	committed := NewKey("a", "committed")
	require.NoError(t, mgr.Put(committed, []byte("base")))
	_, err := mgr.Commit()
	require.NoError(t, err)

	require.NoError(t, mgr.Put(kept, []byte("k")))
	require.NoError(t, mgr.Put(overwritten, []byte("v1")))
	cp := mgr.Checkpoint()

	require.NoError(t, mgr.Put(overwritten, []byte("v2")))
	require.NoError(t, mgr.Put(NewKey("a", "fresh"), []byte("f")))
	require.NoError(t, mgr.Delete(committed))
	mgr.RevertTo(cp)

	value, ok, err := mgr.Get(overwritten)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)

	value, ok, err = mgr.Get(committed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("base"), value)

	require.Equal(t, []string{"a/committed", "a/kept", "a/overwritten"}, iterKeys(t, mustIter(t, mgr, NewKey("a"))))
	require.Equal(t, 2, mgr.PendingWrites())
}

func TestManagerRevertIgnoresStaleCheckpoint(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Put(NewKey("a"), []byte("1")))
	cp := mgr.Checkpoint()
	_, err := mgr.Commit()
	require.NoError(t, err)

	require.NoError(t, mgr.Put(NewKey("b"), []byte("2")))
	mgr.RevertTo(cp + 5)
	require.Equal(t, 1, mgr.PendingWrites())
	mgr.RevertTo(0)
	require.Equal(t, 0, mgr.PendingWrites())
}

func mustIter(t *testing.T, mgr *Manager, prefix Key) Iterator {
	t.Helper()
	it, err := mgr.IterPrefix(prefix)
	require.NoError(t, err)
	return it
}
