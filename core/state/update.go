package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"nhbbridge/core/types"
)

// WriteValue encodes value and stores it under key.
func WriteValue[V any](m *Manager, key Key, value V) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.Put(key, encoded)
}

// Update reads the value under key (or its zero value when absent), applies
// update in place and writes the result back. It is the only read-modify-write
// primitive; it spans a single key and relies on the Manager's single-writer
// contract rather than any locking.
func Update[V any](m *Manager, key Key, update func(*V)) (V, error) {
	value, err := ReadOrDefault[V](m, key)
	if err != nil {
		return value, err
	}
	update(&value)
	if err := WriteValue(m, key, value); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}

// UpdateAmount reads the Amount under key, applies update then writes it back.
func UpdateAmount(m *Manager, key Key, update func(*types.Amount)) (types.Amount, error) {
	return Update(m, key, update)
}
