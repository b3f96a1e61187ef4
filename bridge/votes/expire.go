package votes

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"nhbbridge/core/epoch"
	nhberrors "nhbbridge/core/errors"
	"nhbbridge/core/state"
)

// Expire deletes every unseen tally of type T whose voting started at least
// maxAge epochs before the current one. It returns the bodies that had more
// than a third of current stake behind them, which the caller must still
// process, and the number of tallies removed.
func Expire[T Body](m *state.Manager, maxAge epoch.Epoch) ([]T, int, error) {
	current, err := m.CurrentEpoch()
	if err != nil {
		return nil, 0, err
	}
	stale, err := staleTallies[T](m, current, maxAge)
	if err != nil {
		return nil, 0, err
	}
	var retained []T
	removed := 0
	for _, keys := range stale {
		seen, found, err := MaybeReadSeen(m, keys)
		if err != nil {
			return nil, 0, err
		}
		if !found || seen {
			continue
		}
		body, err := Delete(m, keys)
		if err != nil {
			return nil, 0, err
		}
		removed++
		if body != nil {
			retained = append(retained, *body)
		}
	}
	return retained, removed, nil
}

// staleTallies finishes the scan before returning so callers can mutate the
// tallies it found.
func staleTallies[T Body](m *state.Manager, current, maxAge epoch.Epoch) ([]Keys[T], error) {
	it, err := IterPrefix(m, KindPrefix[T]())
	if err != nil {
		return nil, err
	}
	defer it.Release()
	var stale []Keys[T]
	for it.Next() {
		if it.Key().Last() != votingStartedEpochSegment {
			continue
		}
		var started epoch.Epoch
		if err := rlp.DecodeBytes(it.Value(), &started); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", nhberrors.ErrDeserialization, it.Key(), err)
		}
		if current < started || current-started < maxAge {
			continue
		}
		keys, err := KeysFromPrefix[T](it.Key())
		if err != nil {
			return nil, err
		}
		stale = append(stale, keys)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return stale, nil
}
