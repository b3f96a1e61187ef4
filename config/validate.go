package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is self-consistent.
func (c *Config) Validate() error {
	switch c.Database {
	case DatabaseMemory:
	case DatabaseLevelDB:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("leveldb: DataDir must not be empty")
		}
	default:
		return fmt.Errorf("database: unknown backend %q", c.Database)
	}
	if err := c.EpochConfig().Validate(); err != nil {
		return fmt.Errorf("epoch: %w", err)
	}
	if _, err := c.QuorumPolicy(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	if c.Bridge.ExpiryEpochs == 0 {
		return fmt.Errorf("bridge: ExpiryEpochs must be greater than zero")
	}
	return nil
}
