package votes

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nhbbridge/core/epoch"
	"nhbbridge/core/state"
	"nhbbridge/core/types"
	"nhbbridge/storage"
)

type testBody struct {
	Nonce   uint64
	Payload []byte
}

func (testBody) TallyKind() string { return "test_msgs" }

func (b testBody) Hash() common.Hash {
	encoded, err := rlp.EncodeToBytes(b)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(encoded)
}

type otherBody struct {
	ID uint64
}

func (otherBody) TallyKind() string { return "other_msgs" }

func (b otherBody) Hash() common.Hash {
	encoded, _ := rlp.EncodeToBytes(b)
	return crypto.Keccak256Hash(encoded)
}

func validator(i byte) common.Address {
	var addr common.Address
	addr[19] = i
	return addr
}

func newBody(nonce uint64) testBody {
	return testBody{Nonce: nonce, Payload: []byte{0xde, 0xad, byte(nonce)}}
}

// newStakedManager bonds the given stakes to validators 1..n at epoch e and
// makes e the current epoch.
func newStakedManager(t *testing.T, e epoch.Epoch, stakes ...uint64) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	mgr := state.NewManager(db)
	for i, stake := range stakes {
		if err := mgr.SetValidatorStake(e, validator(byte(i+1)), types.NewAmount(stake)); err != nil {
			t.Fatalf("bond stake: %v", err)
		}
	}
	if err := mgr.SetCurrentEpoch(e); err != nil {
		t.Fatalf("set epoch: %v", err)
	}
	return mgr
}

func tallyWithPower(e epoch.Epoch, amount uint64, voters ...common.Address) Tally {
	tally := NewTally()
	tally.VotingPower[e] = types.NewAmount(amount)
	for _, v := range voters {
		tally.SeenBy[v] = 1
	}
	return tally
}
