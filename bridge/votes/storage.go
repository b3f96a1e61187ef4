package votes

import (
	"fmt"

	"nhbbridge/core/epoch"
	nhberrors "nhbbridge/core/errors"
	"nhbbridge/core/state"
)

// Write stores body and tally. The voting started epoch is only recorded
// when the tally was not already present; it marks creation and is never
// overwritten. The writes are not rolled back on failure, which is safe
// because a failing state transition discards the whole write log.
func Write[T Body](m *state.Manager, keys Keys[T], body T, tally Tally, alreadyPresent bool) error {
	if err := state.WriteValue(m, keys.Body(), body); err != nil {
		return fmt.Errorf("votes: write body: %w", err)
	}
	if err := state.WriteValue(m, keys.Seen(), tally.Seen); err != nil {
		return fmt.Errorf("votes: write seen: %w", err)
	}
	if err := state.WriteValue(m, keys.SeenBy(), tally.SeenBy); err != nil {
		return fmt.Errorf("votes: write seen_by: %w", err)
	}
	if err := state.WriteValue(m, keys.VotingPower(), tally.VotingPower); err != nil {
		return fmt.Errorf("votes: write voting_power: %w", err)
	}
	if alreadyPresent {
		return nil
	}
	current, err := m.CurrentEpoch()
	if err != nil {
		return err
	}
	if err := state.WriteValue(m, keys.VotingStartedEpoch(), current); err != nil {
		return fmt.Errorf("votes: write voting_started_epoch: %w", err)
	}
	return nil
}

// Read reconstructs the tally stored under keys. The body is not read.
func Read[T Body](r state.ValueReader, keys Keys[T]) (Tally, error) {
	seen, err := state.Read[bool](r, keys.Seen())
	if err != nil {
		return Tally{}, fmt.Errorf("votes: read seen: %w", err)
	}
	seenBy, err := state.Read[Votes](r, keys.SeenBy())
	if err != nil {
		return Tally{}, fmt.Errorf("votes: read seen_by: %w", err)
	}
	power, err := state.Read[EpochedVotingPower](r, keys.VotingPower())
	if err != nil {
		return Tally{}, fmt.Errorf("votes: read voting_power: %w", err)
	}
	return Tally{VotingPower: power, SeenBy: seenBy, Seen: seen}, nil
}

// ReadBody returns the body being voted on.
func ReadBody[T Body](r state.ValueReader, keys Keys[T]) (T, error) {
	body, err := state.Read[T](r, keys.Body())
	if err != nil {
		return body, fmt.Errorf("votes: read body: %w", err)
	}
	return body, nil
}

// ReadVotingStartedEpoch returns the epoch the tally was created in.
func ReadVotingStartedEpoch[T Body](r state.ValueReader, keys Keys[T]) (epoch.Epoch, error) {
	started, err := state.Read[epoch.Epoch](r, keys.VotingStartedEpoch())
	if err != nil {
		return 0, fmt.Errorf("votes: read voting_started_epoch: %w", err)
	}
	return started, nil
}

// MaybeReadSeen returns the seen flag and whether the tally exists at all,
// separating "never voted on" from "voted on, not yet seen".
func MaybeReadSeen[T Body](r state.ValueReader, keys Keys[T]) (seen bool, found bool, err error) {
	seen, found, err = state.MaybeRead[bool](r, keys.Seen())
	if err != nil {
		return false, false, fmt.Errorf("votes: read seen: %w", err)
	}
	return seen, found, nil
}

// Delete removes every key of the tally. When the voting power behind it is
// strictly above one third of the current epoch's stake, the body is returned
// and the caller must process it: a report corroborated by that much stake
// cannot be a unilateral fabrication. Otherwise the body is dropped and nil is
// returned.
func Delete[T Body](m *state.Manager, keys Keys[T]) (*T, error) {
	power, err := state.Read[EpochedVotingPower](m, keys.VotingPower())
	if err != nil {
		return nil, fmt.Errorf("votes: read voting_power: %w", err)
	}
	fraction, err := power.FractionalStake(m)
	if err != nil {
		return nil, err
	}
	var retained *T
	if MeetsSafetyThreshold(fraction) {
		body, err := ReadBody(m, keys)
		if err != nil {
			return nil, err
		}
		retained = &body
	}
	for _, key := range keys.All() {
		if err := m.Delete(key); err != nil {
			return nil, fmt.Errorf("votes: delete %s: %w", key, err)
		}
	}
	return retained, nil
}

// IterPrefix enumerates every stored key under prefix in key order.
func IterPrefix(r state.Reader, prefix state.Key) (state.Iterator, error) {
	it, err := r.IterPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: iterate over %s: %v", nhberrors.ErrStorageIO, prefix, err)
	}
	return it, nil
}
