package votes

import (
	"fmt"
	"sort"

	"nhbbridge/core/epoch"
	"nhbbridge/core/state"
	"nhbbridge/core/types"
)

// Add credits amount to the power cast during epoch e.
func (p *EpochedVotingPower) Add(e epoch.Epoch, amount types.Amount) error {
	if *p == nil {
		*p = make(EpochedVotingPower)
	}
	sum, err := (*p)[e].Add(amount)
	if err != nil {
		return fmt.Errorf("votes: add power at epoch %d: %w", e, err)
	}
	(*p)[e] = sum
	return nil
}

// Total sums the power recorded across every epoch.
func (p EpochedVotingPower) Total() (types.Amount, error) {
	var total types.Amount
	for _, e := range p.Epochs() {
		sum, err := total.Add(p[e])
		if err != nil {
			return types.Amount{}, fmt.Errorf("votes: total power: %w", err)
		}
		total = sum
	}
	return total, nil
}

// FractionalStake measures the recorded power against the total stake of
// the current epoch.
func (p EpochedVotingPower) FractionalStake(r state.StakeReader) (types.FractionalVotingPower, error) {
	current, err := r.CurrentEpoch()
	if err != nil {
		return types.FractionalVotingPower{}, err
	}
	return p.FractionalStakeAt(r, current)
}

// FractionalStakeAt measures the recorded power against the total stake
// bonded at the reference epoch. Power cast in other epochs counts at its
// recorded amount; it is never rescaled. The result is clamped to one, and a
// zero total stake fails with ErrInvalidState.
func (p EpochedVotingPower) FractionalStakeAt(r state.StakeReader, reference epoch.Epoch) (types.FractionalVotingPower, error) {
	total, err := r.TotalStakeAt(reference)
	if err != nil {
		return types.FractionalVotingPower{}, err
	}
	voted, err := p.Total()
	if err != nil {
		return types.FractionalVotingPower{}, err
	}
	fraction, err := types.FractionOf(voted, total)
	if err != nil {
		return types.FractionalVotingPower{}, fmt.Errorf("votes: fractional stake at epoch %d: %w", reference, err)
	}
	return fraction, nil
}

// Epochs returns the recorded epochs in ascending order.
func (p EpochedVotingPower) Epochs() []epoch.Epoch {
	out := make([]epoch.Epoch, 0, len(p))
	for e := range p {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a copy of the voting power.
func (p EpochedVotingPower) Clone() EpochedVotingPower {
	out := make(EpochedVotingPower, len(p))
	for e, a := range p {
		out[e] = a
	}
	return out
}
