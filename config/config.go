package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DatabaseMemory  = "memory"
	DatabaseLevelDB = "leveldb"
)

type Config struct {
	DataDir     string  `toml:"DataDir"`
	Database    string  `toml:"Database"`
	GenesisFile string  `toml:"GenesisFile"`
	Epoch       Epoch   `toml:"Epoch"`
	Bridge      Bridge  `toml:"Bridge"`
	Logging     Logging `toml:"Logging"`
	Metrics     Metrics `toml:"Metrics"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}

	cfg.Database = strings.ToLower(strings.TrimSpace(cfg.Database))
	if cfg.Database == "" {
		cfg.Database = DatabaseLevelDB
	}
	if strings.TrimSpace(cfg.Logging.Service) == "" {
		cfg.Logging.Service = "nhb-bridge"
	}
	if strings.TrimSpace(cfg.Bridge.SeenThreshold) == "" {
		cfg.Bridge.SeenThreshold = DefaultSeenThreshold
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:  "./nhb-bridge-data",
		Database: DatabaseLevelDB,
		Epoch:    Epoch{Length: 100},
		Bridge: Bridge{
			SeenThreshold: DefaultSeenThreshold,
			ExpiryEpochs:  2,
		},
		Logging: Logging{Service: "nhb-bridge", Level: "info"},
		Metrics: Metrics{Enabled: true},
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
