package genesis

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"nhbbridge/core/epoch"
	"nhbbridge/core/state"
	"nhbbridge/core/types"
)

// Validator is a genesis validator entry.
type Validator struct {
	Address string `yaml:"address"`
	Stake   string `yaml:"stake"`
}

// Spec describes the stake bonded at epoch zero.
type Spec struct {
	Validators []Validator `yaml:"validators"`
}

// Load reads a YAML genesis file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML genesis document.
func Parse(data []byte) (*Spec, error) {
	spec := new(Spec)
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("genesis: decode: %w", err)
	}
	if _, err := spec.Weights(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Weights converts the validator entries, rejecting malformed addresses,
// duplicates and zero stake.
func (s *Spec) Weights() ([]epoch.Weight, error) {
	if s == nil || len(s.Validators) == 0 {
		return nil, fmt.Errorf("genesis: at least one validator required")
	}
	seen := make(map[common.Address]struct{}, len(s.Validators))
	weights := make([]epoch.Weight, 0, len(s.Validators))
	for i, v := range s.Validators {
		raw := strings.TrimSpace(v.Address)
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("genesis: validator %d: invalid address %q", i, v.Address)
		}
		addr := common.HexToAddress(raw)
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("genesis: validator %s listed twice", addr.Hex())
		}
		seen[addr] = struct{}{}
		stake, err := types.ParseAmount(strings.TrimSpace(v.Stake))
		if err != nil {
			return nil, fmt.Errorf("genesis: validator %s: %w", addr.Hex(), err)
		}
		if stake.IsZero() {
			return nil, fmt.Errorf("genesis: validator %s: stake must be positive", addr.Hex())
		}
		weights = append(weights, epoch.Weight{Address: addr, Stake: stake})
	}
	epoch.SortWeights(weights)
	return weights, nil
}

// Apply bonds the genesis stake at epoch zero and starts the epoch clock.
func (s *Spec) Apply(m *state.Manager) error {
	weights, err := s.Weights()
	if err != nil {
		return err
	}
	for _, w := range weights {
		if err := m.SetValidatorStake(0, w.Address, w.Stake); err != nil {
			return fmt.Errorf("genesis: bond %s: %w", w.Address.Hex(), err)
		}
	}
	if err := m.SetCurrentEpoch(0); err != nil {
		return err
	}
	return m.SetBlockHeight(0)
}
