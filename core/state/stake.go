package state

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"nhbbridge/core/epoch"
	"nhbbridge/core/types"
)

// StakeReader exposes the epoch clock and the bonded stake per epoch.
type StakeReader interface {
	CurrentEpoch() (epoch.Epoch, error)
	TotalStakeAt(e epoch.Epoch) (types.Amount, error)
}

var (
	currentEpochKey = NewKey("epoch", "current")
	blockHeightKey  = NewKey("epoch", "height")
	stakePrefix     = NewKey("stake")
)

func stakeEpochKey(e epoch.Epoch) Key {
	return stakePrefix.Push(strconv.FormatUint(uint64(e), 10))
}

// TotalStakeKey is the key of the total stake bonded in an epoch.
func TotalStakeKey(e epoch.Epoch) Key {
	return stakeEpochKey(e).Push("total")
}

// ValidatorStakeKey is the key of a validator's stake in an epoch.
func ValidatorStakeKey(e epoch.Epoch, addr common.Address) Key {
	return stakeEpochKey(e).Push("validator").Push(hex.EncodeToString(addr.Bytes()))
}

func validatorIndexKey(e epoch.Epoch) Key {
	return stakeEpochKey(e).Push("validators")
}

func currentEpoch(r ValueReader) (epoch.Epoch, error) {
	e, err := ReadOrDefault[epoch.Epoch](r, currentEpochKey)
	if err != nil {
		return 0, fmt.Errorf("state: read current epoch: %w", err)
	}
	return e, nil
}

func totalStakeAt(r ValueReader, e epoch.Epoch) (types.Amount, error) {
	total, err := ReadOrDefault[types.Amount](r, TotalStakeKey(e))
	if err != nil {
		return types.Amount{}, fmt.Errorf("state: read total stake at epoch %d: %w", e, err)
	}
	return total, nil
}

// ValidatorStakeAt returns the stake bonded by addr in epoch e.
func ValidatorStakeAt(r ValueReader, e epoch.Epoch, addr common.Address) (types.Amount, error) {
	stake, err := ReadOrDefault[types.Amount](r, ValidatorStakeKey(e, addr))
	if err != nil {
		return types.Amount{}, fmt.Errorf("state: read stake of %s at epoch %d: %w", addr.Hex(), e, err)
	}
	return stake, nil
}

// StakeSnapshot loads the full stake distribution of an epoch, sorted by
// descending stake.
func StakeSnapshot(r ValueReader, e epoch.Epoch) (epoch.Snapshot, error) {
	validators, err := ReadOrDefault[[]common.Address](r, validatorIndexKey(e))
	if err != nil {
		return epoch.Snapshot{}, fmt.Errorf("state: read validator index at epoch %d: %w", e, err)
	}
	total, err := totalStakeAt(r, e)
	if err != nil {
		return epoch.Snapshot{}, err
	}
	snap := epoch.Snapshot{Epoch: e, Total: total, Weights: make([]epoch.Weight, 0, len(validators))}
	for _, addr := range validators {
		stake, err := ValidatorStakeAt(r, e, addr)
		if err != nil {
			return epoch.Snapshot{}, err
		}
		snap.Weights = append(snap.Weights, epoch.Weight{Address: addr, Stake: stake})
	}
	epoch.SortWeights(snap.Weights)
	return snap, nil
}

// SetCurrentEpoch records the active epoch.
func (m *Manager) SetCurrentEpoch(e epoch.Epoch) error {
	return WriteValue(m, currentEpochKey, e)
}

// BlockHeight returns the last height recorded with SetBlockHeight.
func (m *Manager) BlockHeight() (uint64, error) {
	return ReadOrDefault[uint64](m, blockHeightKey)
}

func (m *Manager) SetBlockHeight(height uint64) error {
	return WriteValue(m, blockHeightKey, height)
}

// ValidatorStakeAt returns the stake bonded by addr in epoch e, including
// uncommitted changes.
func (m *Manager) ValidatorStakeAt(e epoch.Epoch, addr common.Address) (types.Amount, error) {
	return ValidatorStakeAt(m, e, addr)
}

// SetValidatorStake replaces a validator's stake for epoch e and keeps the
// epoch total consistent. A zero amount removes the validator from the epoch.
func (m *Manager) SetValidatorStake(e epoch.Epoch, addr common.Address, amount types.Amount) error {
	previous, err := ValidatorStakeAt(m, e, addr)
	if err != nil {
		return err
	}
	total, err := totalStakeAt(m, e)
	if err != nil {
		return err
	}
	remaining, err := total.Sub(previous)
	if err != nil {
		return fmt.Errorf("state: stake accounting at epoch %d: %w", e, err)
	}
	nextTotal, err := remaining.Add(amount)
	if err != nil {
		return fmt.Errorf("state: stake accounting at epoch %d: %w", e, err)
	}
	if err := WriteValue(m, TotalStakeKey(e), nextTotal); err != nil {
		return err
	}
	if amount.IsZero() {
		if err := m.Delete(ValidatorStakeKey(e, addr)); err != nil {
			return err
		}
		return m.updateValidatorIndex(e, addr, false)
	}
	if err := WriteValue(m, ValidatorStakeKey(e, addr), amount); err != nil {
		return err
	}
	return m.updateValidatorIndex(e, addr, true)
}

// BondStake adds delta to a validator's stake for epoch e and returns the new
// validator stake.
func (m *Manager) BondStake(e epoch.Epoch, addr common.Address, delta types.Amount) (types.Amount, error) {
	var addErr error
	bump := func(a *types.Amount) {
		sum, err := a.Add(delta)
		if err != nil {
			addErr = err
			return
		}
		*a = sum
	}
	if _, err := UpdateAmount(m, TotalStakeKey(e), bump); err != nil {
		return types.Amount{}, err
	}
	if addErr != nil {
		return types.Amount{}, fmt.Errorf("state: bond at epoch %d: %w", e, addErr)
	}
	stake, err := UpdateAmount(m, ValidatorStakeKey(e, addr), bump)
	if err != nil {
		return types.Amount{}, err
	}
	if addErr != nil {
		return types.Amount{}, fmt.Errorf("state: bond at epoch %d: %w", e, addErr)
	}
	if err := m.updateValidatorIndex(e, addr, true); err != nil {
		return types.Amount{}, err
	}
	return stake, nil
}

// CarryStake copies the stake distribution of epoch from into epoch to unless
// stake has already been recorded for to. It reports whether a copy happened.
func (m *Manager) CarryStake(from, to epoch.Epoch) (bool, error) {
	_, exists, err := MaybeRead[[]common.Address](m, validatorIndexKey(to))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	snap, err := StakeSnapshot(m, from)
	if err != nil {
		return false, err
	}
	for _, w := range snap.Weights {
		if err := m.SetValidatorStake(to, w.Address, w.Stake); err != nil {
			return false, err
		}
	}
	if len(snap.Weights) == 0 {
		if err := WriteValue(m, validatorIndexKey(to), []common.Address{}); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *Manager) updateValidatorIndex(e epoch.Epoch, addr common.Address, present bool) error {
	key := validatorIndexKey(e)
	list, err := ReadOrDefault[[]common.Address](m, key)
	if err != nil {
		return err
	}
	idx := sort.Search(len(list), func(i int) bool { return bytes.Compare(list[i][:], addr[:]) >= 0 })
	found := idx < len(list) && list[idx] == addr
	switch {
	case present && !found:
		list = append(list, common.Address{})
		copy(list[idx+1:], list[idx:])
		list[idx] = addr
	case !present && found:
		list = append(list[:idx], list[idx+1:]...)
	default:
		if _, exists, err := MaybeRead[[]common.Address](m, key); err != nil || exists {
			return err
		}
	}
	if list == nil {
		list = []common.Address{}
	}
	return WriteValue(m, key, list)
}

// Initialized reports whether the epoch clock has ever been written, which
// is the case once genesis has been applied.
func (m *Manager) Initialized() (bool, error) {
	return m.Has(currentEpochKey)
}
