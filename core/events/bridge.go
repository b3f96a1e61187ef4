package events

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeBridgeTallySeen is emitted when a tally first crosses the seen
	// threshold.
	TypeBridgeTallySeen = "bridge.tally.seen"
	// TypeBridgeTallyRetained is emitted for an expired tally whose body had
	// more than a third of stake behind it and must still be processed.
	TypeBridgeTallyRetained = "bridge.tally.retained"
	// TypeBridgeTalliesExpired summarises an expiry sweep.
	TypeBridgeTalliesExpired = "bridge.tallies.expired"
)

// BridgeTallySeen captures a body accepted by the quorum policy.
type BridgeTallySeen struct {
	Kind   string
	Hash   common.Hash
	Power  string
	Voters int
}

// EventType satisfies the Event interface.
func (BridgeTallySeen) EventType() string { return TypeBridgeTallySeen }

// Event converts the structured payload into a broadcastable event.
func (e BridgeTallySeen) Event() *Record {
	return &Record{
		Type: TypeBridgeTallySeen,
		Attributes: map[string]string{
			"kind":   e.Kind,
			"hash":   e.Hash.Hex(),
			"power":  e.Power,
			"voters": strconv.Itoa(e.Voters),
		},
	}
}

// BridgeTallyRetained captures an expired body that must still be processed.
type BridgeTallyRetained struct {
	Kind string
	Hash common.Hash
}

// EventType satisfies the Event interface.
func (BridgeTallyRetained) EventType() string { return TypeBridgeTallyRetained }

// Event converts the structured payload into a broadcastable event.
func (e BridgeTallyRetained) Event() *Record {
	return &Record{
		Type:       TypeBridgeTallyRetained,
		Attributes: map[string]string{"kind": e.Kind, "hash": e.Hash.Hex()},
	}
}

// BridgeTalliesExpired summarises one sweep over a tally kind.
type BridgeTalliesExpired struct {
	Kind     string
	Removed  int
	Retained int
}

// EventType satisfies the Event interface.
func (BridgeTalliesExpired) EventType() string { return TypeBridgeTalliesExpired }

func (e BridgeTalliesExpired) Event() *Record {
	return &Record{
		Type: TypeBridgeTalliesExpired,
		Attributes: map[string]string{
			"kind":     e.Kind,
			"removed":  strconv.Itoa(e.Removed),
			"retained": strconv.Itoa(e.Retained),
		},
	}
}
