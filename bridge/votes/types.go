package votes

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"nhbbridge/core/epoch"
	"nhbbridge/core/types"
)

// Body is a fact validators vote on. TallyKind must return the same constant
// for every value of a type, including the zero value; Hash identifies the
// fact and must be a pure function of its canonical encoding.
type Body interface {
	TallyKind() string
	Hash() common.Hash
}

// Votes maps each validator that voted to the block height its vote was
// recorded at.
type Votes map[common.Address]uint64

// EpochedVotingPower records the stake that voted during each epoch.
type EpochedVotingPower map[epoch.Epoch]types.Amount

// Tally is the accumulated voting record for one body.
type Tally struct {
	VotingPower EpochedVotingPower
	SeenBy      Votes
	// Seen is set once the caller's quorum policy accepted the body. It
	// never reverts.
	Seen bool
}

// NewTally returns an empty tally.
func NewTally() Tally {
	return Tally{VotingPower: EpochedVotingPower{}, SeenBy: Votes{}}
}

// Clone returns a deep copy of the tally.
func (t Tally) Clone() Tally {
	return Tally{VotingPower: t.VotingPower.Clone(), SeenBy: t.SeenBy.Clone(), Seen: t.Seen}
}

// Clone returns a copy of the votes.
func (v Votes) Clone() Votes {
	out := make(Votes, len(v))
	for k, h := range v {
		out[k] = h
	}
	return out
}

// Validators returns the voters in ascending address order.
func (v Votes) Validators() []common.Address {
	out := make([]common.Address, 0, len(v))
	for addr := range v {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

type voteEntry struct {
	Validator common.Address
	Height    uint64
}

// EncodeRLP writes the votes as a list sorted by validator address.
func (v Votes) EncodeRLP(w io.Writer) error {
	entries := make([]voteEntry, 0, len(v))
	for _, addr := range v.Validators() {
		entries = append(entries, voteEntry{Validator: addr, Height: v[addr]})
	}
	return rlp.Encode(w, entries)
}

// DecodeRLP rejects unsorted or duplicated validators.
func (v *Votes) DecodeRLP(s *rlp.Stream) error {
	var entries []voteEntry
	if err := s.Decode(&entries); err != nil {
		return err
	}
	out := make(Votes, len(entries))
	for i, entry := range entries {
		if i > 0 && bytes.Compare(entries[i-1].Validator[:], entry.Validator[:]) >= 0 {
			return fmt.Errorf("votes: validators not strictly ascending at index %d", i)
		}
		out[entry.Validator] = entry.Height
	}
	*v = out
	return nil
}

type powerEntry struct {
	Epoch  epoch.Epoch
	Amount types.Amount
}

// EncodeRLP writes the voting power as a list sorted by epoch.
func (p EpochedVotingPower) EncodeRLP(w io.Writer) error {
	entries := make([]powerEntry, 0, len(p))
	for _, e := range p.Epochs() {
		entries = append(entries, powerEntry{Epoch: e, Amount: p[e]})
	}
	return rlp.Encode(w, entries)
}

// DecodeRLP rejects unsorted or duplicated epochs.
func (p *EpochedVotingPower) DecodeRLP(s *rlp.Stream) error {
	var entries []powerEntry
	if err := s.Decode(&entries); err != nil {
		return err
	}
	out := make(EpochedVotingPower, len(entries))
	for i, entry := range entries {
		if i > 0 && entries[i-1].Epoch >= entry.Epoch {
			return fmt.Errorf("votes: epochs not strictly ascending at index %d", i)
		}
		out[entry.Epoch] = entry.Amount
	}
	*p = out
	return nil
}
