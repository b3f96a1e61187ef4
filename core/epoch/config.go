package epoch

import "fmt"

// Epoch identifies a staking period. Total bonded stake is fixed within an
// epoch and only changes at epoch boundaries.
type Epoch uint64

// Config describes how block heights map onto epochs.
type Config struct {
	// Length is the number of blocks that make up a single epoch. The value
	// must be greater than zero.
	Length uint64
}

// DefaultConfig returns a conservative default configuration.
func DefaultConfig() Config {
	return Config{Length: 100}
}

// Validate ensures the configuration is self-consistent.
func (c Config) Validate() error {
	if c.Length == 0 {
		return fmt.Errorf("epoch length must be greater than zero")
	}
	return nil
}

// EpochAt returns the epoch containing the provided height.
func (c Config) EpochAt(height uint64) Epoch {
	if c.Length == 0 {
		return 0
	}
	return Epoch(height / c.Length)
}

// FirstHeight returns the first block height of the epoch.
func (c Config) FirstHeight(e Epoch) uint64 {
	return uint64(e) * c.Length
}

// IsBoundary reports whether height is the first block of a new epoch.
func (c Config) IsBoundary(height uint64) bool {
	return c.Length > 0 && height > 0 && height%c.Length == 0
}
