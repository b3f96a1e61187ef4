package epoch

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"nhbbridge/core/types"
)

// Weight captures the stake bonded by a single validator in an epoch.
type Weight struct {
	Address common.Address
	Stake   types.Amount
}

// Snapshot stores the per-epoch stake distribution.
type Snapshot struct {
	Epoch   Epoch
	Total   types.Amount
	Weights []Weight
}

// StakeOf returns the stake bonded by addr in the snapshot.
func (s Snapshot) StakeOf(addr common.Address) types.Amount {
	for _, w := range s.Weights {
		if w.Address == addr {
			return w.Stake
		}
	}
	return types.Amount{}
}

// SortWeights sorts weights by descending stake with a deterministic
// tie-breaker on address bytes.
func SortWeights(weights []Weight) {
	sort.Slice(weights, func(i, j int) bool {
		cmp := weights[i].Stake.Cmp(weights[j].Stake)
		if cmp == 0 {
			return bytes.Compare(weights[i].Address[:], weights[j].Address[:]) < 0
		}
		return cmp > 0
	})
}
