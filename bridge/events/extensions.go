package events

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EventsVoteExtension carries the bridged-chain events one validator
// observed, as delivered with a block.
type EventsVoteExtension struct {
	Validator common.Address
	Height    uint64
	Events    []TransfersToChain
}

// Validate performs stateless checks on the extension and its events.
func (x EventsVoteExtension) Validate() error {
	if x.Validator == (common.Address{}) {
		return fmt.Errorf("events vote extension: validator required")
	}
	for i, event := range x.Events {
		if err := event.Validate(); err != nil {
			return fmt.Errorf("events vote extension: event %d: %w", i, err)
		}
	}
	return nil
}

// ValsetVoteExtension carries one validator's vote on the next validator set.
type ValsetVoteExtension struct {
	Validator common.Address
	Height    uint64
	Update    ValidatorSetUpdate
}

func (x ValsetVoteExtension) Validate() error {
	if x.Validator == (common.Address{}) {
		return fmt.Errorf("valset vote extension: validator required")
	}
	if err := x.Update.Validate(); err != nil {
		return fmt.Errorf("valset vote extension: %w", err)
	}
	return nil
}
