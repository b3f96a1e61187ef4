package votes

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"nhbbridge/core/state"
	"nhbbridge/core/types"
)

// Vote is one validator's attestation of a body, carrying the stake the
// validator has bonded in the current epoch.
type Vote struct {
	Validator common.Address
	Height    uint64
	Power     types.Amount
}

// Outcome describes what Apply did to a tally.
type Outcome struct {
	// Changed is set when at least one vote was recorded and the tally was
	// written back.
	Changed bool
	// NewlySeen is set when this call flipped the tally to seen.
	NewlySeen bool
	// AlreadySeen is set when the tally was seen before the call; no votes
	// are recorded in that case.
	AlreadySeen bool
	Applied     int
	Ignored     int
	Tally       Tally
	Power       types.FractionalVotingPower
}

// Apply merges incoming votes for body into its tally. Validators that
// already voted, duplicates within incoming and zero-power votes are ignored.
// New power is credited to the current epoch and the tally becomes seen once
// policy accepts the resulting fraction of current stake.
func Apply[T Body](m *state.Manager, body T, incoming []Vote, policy QuorumPolicy) (Outcome, error) {
	if policy == nil {
		return Outcome{}, fmt.Errorf("votes: quorum policy required")
	}
	keys := KeysFor(body)
	_, found, err := MaybeReadSeen(m, keys)
	if err != nil {
		return Outcome{}, err
	}
	tally := NewTally()
	if found {
		if tally, err = Read(m, keys); err != nil {
			return Outcome{}, err
		}
	}
	if tally.Seen {
		return Outcome{AlreadySeen: true, Ignored: len(incoming), Tally: tally}, nil
	}

	current, err := m.CurrentEpoch()
	if err != nil {
		return Outcome{}, err
	}
	var out Outcome
	for _, vote := range incoming {
		if vote.Power.IsZero() {
			out.Ignored++
			continue
		}
		if _, voted := tally.SeenBy[vote.Validator]; voted {
			out.Ignored++
			continue
		}
		if err := tally.VotingPower.Add(current, vote.Power); err != nil {
			return Outcome{}, err
		}
		tally.SeenBy[vote.Validator] = vote.Height
		out.Applied++
	}
	out.Tally = tally
	if out.Applied == 0 {
		if found {
			power, err := tally.VotingPower.FractionalStake(m)
			if err != nil {
				return Outcome{}, err
			}
			out.Power = power
		}
		return out, nil
	}

	power, err := tally.VotingPower.FractionalStake(m)
	if err != nil {
		return Outcome{}, err
	}
	out.Power = power
	if policy.IsSeen(power) {
		tally.Seen = true
		out.NewlySeen = true
	}
	out.Tally = tally
	if err := Write(m, keys, body, tally, found); err != nil {
		return Outcome{}, err
	}
	out.Changed = true
	return out, nil
}
