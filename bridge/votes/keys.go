package votes

import (
	"encoding/hex"
	"fmt"

	"nhbbridge/core/state"
)

const (
	keyPrefix = "bridge"

	bodySegment               = "body"
	seenSegment               = "seen"
	seenBySegment             = "seen_by"
	votingPowerSegment        = "voting_power"
	votingStartedEpochSegment = "voting_started_epoch"
)

// Keys addresses the storage of one tally. Every key shares the prefix
// bridge/<kind>/<hash>.
type Keys[T Body] struct {
	prefix state.Key
}

// KindPrefix returns the prefix shared by every tally of body type T. A
// prefix scan over it yields exactly the keys of that type.
func KindPrefix[T Body]() state.Key {
	var zero T
	return state.NewKey(keyPrefix, zero.TallyKind())
}

// KeysFor derives the storage keys of body.
func KeysFor[T Body](body T) Keys[T] {
	hash := body.Hash()
	return Keys[T]{prefix: KindPrefix[T]().Push(hex.EncodeToString(hash[:]))}
}

// KeysFromPrefix recovers the keys of a tally from its prefix or from any of
// its five keys.
func KeysFromPrefix[T Body](key state.Key) (Keys[T], error) {
	kind := KindPrefix[T]()
	if !kind.IsPrefixOf(key) {
		return Keys[T]{}, fmt.Errorf("votes: key %s is not under %s", key, kind)
	}
	switch key.Len() - kind.Len() {
	case 1:
	case 2:
		if !isTallySegment(key.Last()) {
			return Keys[T]{}, fmt.Errorf("votes: key %s is not a tally key", key)
		}
		key = key.Parent()
	default:
		return Keys[T]{}, fmt.Errorf("votes: key %s is not a tally key", key)
	}
	raw, err := hex.DecodeString(key.Last())
	if err != nil || len(raw) != 32 {
		return Keys[T]{}, fmt.Errorf("votes: key %s has a malformed body hash", key)
	}
	return Keys[T]{prefix: key}, nil
}

func isTallySegment(seg string) bool {
	switch seg {
	case bodySegment, seenSegment, seenBySegment, votingPowerSegment, votingStartedEpochSegment:
		return true
	}
	return false
}

// IsBodyKey reports whether key addresses a tally body.
func IsBodyKey(key state.Key) bool {
	return key.Last() == bodySegment
}

func (k Keys[T]) Prefix() state.Key { return k.prefix }

func (k Keys[T]) Body() state.Key { return k.prefix.Push(bodySegment) }

func (k Keys[T]) Seen() state.Key { return k.prefix.Push(seenSegment) }

func (k Keys[T]) SeenBy() state.Key { return k.prefix.Push(seenBySegment) }

func (k Keys[T]) VotingPower() state.Key { return k.prefix.Push(votingPowerSegment) }

func (k Keys[T]) VotingStartedEpoch() state.Key { return k.prefix.Push(votingStartedEpochSegment) }

// All returns the five keys in the order they are written.
func (k Keys[T]) All() []state.Key {
	return []state.Key{k.Body(), k.Seen(), k.SeenBy(), k.VotingPower(), k.VotingStartedEpoch()}
}
