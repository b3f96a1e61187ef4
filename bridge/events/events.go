package events

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"nhbbridge/core/epoch"
	"nhbbridge/core/types"
)

const (
	// KindTransfersToChain tags tallies of deposits observed on the bridged
	// chain.
	KindTransfersToChain = "eth_msgs"
	// KindValidatorSetUpdate tags tallies of validator set updates that must
	// be relayed to the bridged chain.
	KindValidatorSetUpdate = "valset_upd"
)

// TransferToChain is a single deposit towards this chain.
type TransferToChain struct {
	Asset    common.Address
	Receiver common.Address
	Amount   types.Amount
}

// TransfersToChain is a batch of deposits emitted by the bridge contract
// under a single nonce.
type TransfersToChain struct {
	Nonce     types.Amount
	Transfers []TransferToChain
}

func (TransfersToChain) TallyKind() string { return KindTransfersToChain }

// Hash is the keccak256 of the event's RLP encoding.
func (e TransfersToChain) Hash() common.Hash {
	return rlpHash(e)
}

// Validate performs stateless checks on the event.
func (e TransfersToChain) Validate() error {
	for i, transfer := range e.Transfers {
		if transfer.Amount.IsZero() {
			return fmt.Errorf("transfer %d: amount must be positive", i)
		}
		if transfer.Receiver == (common.Address{}) {
			return fmt.Errorf("transfer %d: receiver required", i)
		}
	}
	return nil
}

// ValidatorSetUpdate is the validator set of an upcoming epoch, which the
// bridged chain's contracts need to verify future signatures.
type ValidatorSetUpdate struct {
	Epoch      epoch.Epoch
	Validators []common.Address
	Powers     []types.Amount
}

func (ValidatorSetUpdate) TallyKind() string { return KindValidatorSetUpdate }

func (u ValidatorSetUpdate) Hash() common.Hash {
	return rlpHash(u)
}

// Validate checks the validators are strictly ascending and each has a
// positive power.
func (u ValidatorSetUpdate) Validate() error {
	if len(u.Validators) == 0 {
		return fmt.Errorf("validator set update for epoch %d is empty", u.Epoch)
	}
	if len(u.Validators) != len(u.Powers) {
		return fmt.Errorf("validator set update for epoch %d: %d validators but %d powers", u.Epoch, len(u.Validators), len(u.Powers))
	}
	for i, addr := range u.Validators {
		if i > 0 && bytes.Compare(u.Validators[i-1][:], addr[:]) >= 0 {
			return fmt.Errorf("validator set update for epoch %d: validators not strictly ascending at %d", u.Epoch, i)
		}
		if u.Powers[i].IsZero() {
			return fmt.Errorf("validator set update for epoch %d: validator %s has zero power", u.Epoch, addr.Hex())
		}
	}
	return nil
}

func rlpHash(v interface{}) common.Hash {
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		// Event types only hold RLP-encodable fields.
		panic(fmt.Sprintf("events: encode %T: %v", v, err))
	}
	return ethcrypto.Keccak256Hash(encoded)
}
