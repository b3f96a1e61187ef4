package config

import (
	"nhbbridge/bridge/votes"
	"nhbbridge/core/epoch"
	"nhbbridge/core/types"
	"nhbbridge/observability/logging"
)

// DefaultSeenThreshold is the stake fraction a tally must strictly exceed to
// be marked seen.
const DefaultSeenThreshold = "2/3"

// Epoch controls how block heights map onto staking epochs.
type Epoch struct {
	Length uint64 `toml:"Length"`
}

// Bridge tunes the vote tally engine.
type Bridge struct {
	// SeenThreshold is a fraction such as "2/3". It may not be below the
	// 1/3 safety floor.
	SeenThreshold string `toml:"SeenThreshold"`
	// ExpiryEpochs is how many epochs an unseen tally may live before it is
	// swept.
	ExpiryEpochs uint64 `toml:"ExpiryEpochs"`
}

type Logging struct {
	Service    string `toml:"Service"`
	Env        string `toml:"Env"`
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB,omitempty"`
	MaxBackups int    `toml:"MaxBackups,omitempty"`
}

type Metrics struct {
	Enabled bool `toml:"Enabled"`
	// ListenAddress serves /metrics when set, e.g. "127.0.0.1:9108".
	ListenAddress string `toml:"ListenAddress,omitempty"`
}

// EpochConfig converts the epoch section.
func (c *Config) EpochConfig() epoch.Config {
	return epoch.Config{Length: c.Epoch.Length}
}

// QuorumPolicy parses the seen threshold into a policy.
func (c *Config) QuorumPolicy() (votes.ThresholdPolicy, error) {
	threshold, err := types.ParseFractionalVotingPower(c.Bridge.SeenThreshold)
	if err != nil {
		return votes.ThresholdPolicy{}, err
	}
	return votes.NewThresholdPolicy(threshold)
}

func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Service:    c.Logging.Service,
		Env:        c.Logging.Env,
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}
