package votes

import (
	"fmt"

	"nhbbridge/core/types"
)

// MeetsSafetyThreshold reports whether power is strictly above one third.
// With at most a third of stake faulty, such a report has at least one honest
// backer and must not be silently discarded.
func MeetsSafetyThreshold(power types.FractionalVotingPower) bool {
	return power.GreaterThan(types.OneThird)
}

// QuorumPolicy decides when a tally becomes seen. It is supplied by the
// caller; the one-third safety floor applied on deletion is not negotiable.
type QuorumPolicy interface {
	IsSeen(power types.FractionalVotingPower) bool
}

// ThresholdPolicy marks a tally seen once its power is strictly above a fixed
// fraction of stake.
type ThresholdPolicy struct {
	threshold types.FractionalVotingPower
}

// NewThresholdPolicy validates threshold, which must be at least one third
// and below one.
func NewThresholdPolicy(threshold types.FractionalVotingPower) (ThresholdPolicy, error) {
	if threshold.Cmp(types.OneThird) < 0 {
		return ThresholdPolicy{}, fmt.Errorf("votes: seen threshold %s below the 1/3 safety floor", threshold)
	}
	if threshold.Cmp(types.FullVotingPower) >= 0 {
		return ThresholdPolicy{}, fmt.Errorf("votes: seen threshold %s is unreachable", threshold)
	}
	return ThresholdPolicy{threshold: threshold}, nil
}

// DefaultQuorumPolicy marks tallies seen above two thirds of stake.
func DefaultQuorumPolicy() ThresholdPolicy {
	return ThresholdPolicy{threshold: types.TwoThirds}
}

func (p ThresholdPolicy) IsSeen(power types.FractionalVotingPower) bool {
	return power.GreaterThan(p.threshold)
}

func (p ThresholdPolicy) Threshold() types.FractionalVotingPower {
	return p.threshold
}
