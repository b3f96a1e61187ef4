package state

import (
	"bytes"
	"fmt"

	nhberrors "nhbbridge/core/errors"
	"nhbbridge/storage"
)

// Iterator is a finite, single-pass enumeration of key/value pairs in
// ascending key order. It cannot be restarted. Release must be called when
// iteration stops early; it is safe to call more than once.
type Iterator interface {
	Next() bool
	Key() Key
	Value() []byte
	Error() error
	Release()
}

type overlayEntry struct {
	key     []byte
	value   []byte
	deleted bool
}

// mergedIterator walks a database iterator and a sorted write-log slice in
// lockstep. Equal keys resolve to the write log.
type mergedIterator struct {
	base      storage.Iterator
	baseValid bool
	baseKey   []byte
	baseValue []byte

	overlay []overlayEntry
	pos     int

	key      Key
	value    []byte
	err      error
	released bool
}

func newMergedIterator(base storage.Iterator, overlay []overlayEntry) *mergedIterator {
	it := &mergedIterator{base: base, overlay: overlay}
	it.advanceBase()
	return it
}

func (it *mergedIterator) advanceBase() {
	if it.base.Next() {
		it.baseValid = true
		it.baseKey = append(it.baseKey[:0], it.base.Key()...)
		it.baseValue = append([]byte(nil), it.base.Value()...)
		return
	}
	it.baseValid = false
	if err := it.base.Error(); err != nil {
		it.err = fmt.Errorf("%w: iterate: %v", nhberrors.ErrStorageIO, err)
	}
}

func (it *mergedIterator) Next() bool {
	for {
		if it.err != nil || it.released {
			return false
		}
		haveOverlay := it.pos < len(it.overlay)
		if !it.baseValid && !haveOverlay {
			return false
		}
		var rawKey, value []byte
		if it.baseValid && (!haveOverlay || bytes.Compare(it.baseKey, it.overlay[it.pos].key) < 0) {
			rawKey = append([]byte(nil), it.baseKey...)
			value = it.baseValue
			it.advanceBase()
		} else {
			entry := it.overlay[it.pos]
			it.pos++
			if it.baseValid && bytes.Equal(it.baseKey, entry.key) {
				it.advanceBase()
			}
			if entry.deleted {
				continue
			}
			rawKey = entry.key
			value = append([]byte(nil), entry.value...)
		}
		key, err := ParseKey(string(rawKey))
		if err != nil {
			it.err = fmt.Errorf("%w: %v", nhberrors.ErrStorageIO, err)
			return false
		}
		it.key = key
		it.value = value
		return true
	}
}

func (it *mergedIterator) Key() Key { return it.key }

func (it *mergedIterator) Value() []byte { return it.value }

func (it *mergedIterator) Error() error { return it.err }

func (it *mergedIterator) Release() {
	if it.released {
		return
	}
	it.released = true
	it.base.Release()
}
