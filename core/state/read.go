package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	nhberrors "nhbbridge/core/errors"
)

// MaybeRead decodes the value stored under key. The boolean reports whether
// the key was present; an absent key is not an error.
func MaybeRead[V any](r ValueReader, key Key) (V, bool, error) {
	var value V
	data, ok, err := r.Get(key)
	if err != nil {
		return value, false, err
	}
	if !ok {
		return value, false, nil
	}
	if err := rlp.DecodeBytes(data, &value); err != nil {
		var zero V
		return zero, false, fmt.Errorf("%w: %s: %v", nhberrors.ErrDeserialization, key, err)
	}
	return value, true, nil
}

// Read decodes the value stored under key, failing with ErrNotFound when it
// is absent.
func Read[V any](r ValueReader, key Key) (V, error) {
	value, ok, err := MaybeRead[V](r, key)
	if err != nil {
		return value, err
	}
	if !ok {
		return value, fmt.Errorf("%w: %s", nhberrors.ErrNotFound, key)
	}
	return value, nil
}

// ReadOrDefault decodes the value stored under key, returning the zero value
// of V when the key is absent.
func ReadOrDefault[V any](r ValueReader, key Key) (V, error) {
	value, _, err := MaybeRead[V](r, key)
	return value, err
}
