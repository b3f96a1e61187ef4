package core

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"nhbbridge/bridge"
	"nhbbridge/bridge/events"
	"nhbbridge/config"
	"nhbbridge/core/epoch"
	chainevents "nhbbridge/core/events"
	"nhbbridge/core/genesis"
	"nhbbridge/core/state"
	"nhbbridge/core/types"
	"nhbbridge/observability/logging"
	"nhbbridge/observability/metrics"
	"nhbbridge/storage"
)

// Node is the central controller, wiring storage, state and the bridge
// processor together. Block processing is serialized by stateMu.
type Node struct {
	db        storage.Database
	state     *state.Manager
	processor *bridge.Processor
	epochs    epoch.Config
	events    *chainevents.Log
	logger    *slog.Logger
	metrics   *metrics.BridgeMetrics
	stateMu   sync.Mutex
}

// NewNode opens the configured database and applies the genesis validator
// set if the database has never been initialised.
func NewNode(cfg *config.Config, logger *slog.Logger) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("node: config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrDefault(logger).With("component", "node")

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	node, err := newNode(db, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return node, nil
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Database {
	case config.DatabaseMemory:
		return storage.NewMemDB(), nil
	case config.DatabaseLevelDB:
		db, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("node: open leveldb at %s: %w", cfg.DataDir, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("node: unknown database backend %q", cfg.Database)
	}
}

func newNode(db storage.Database, cfg *config.Config, logger *slog.Logger) (*Node, error) {
	policy, err := cfg.QuorumPolicy()
	if err != nil {
		return nil, err
	}
	var m *metrics.BridgeMetrics
	if cfg.Metrics.Enabled {
		m = metrics.Bridge()
	}
	mgr := state.NewManager(db)
	processor, err := bridge.NewProcessor(mgr, policy, epoch.Epoch(cfg.Bridge.ExpiryEpochs), logger, m)
	if err != nil {
		return nil, err
	}
	eventLog := new(chainevents.Log)
	processor.SetEmitter(eventLog)
	n := &Node{
		db:        db,
		state:     mgr,
		processor: processor,
		epochs:    cfg.EpochConfig(),
		events:    eventLog,
		logger:    logger,
		metrics:   m,
	}
	if err := n.initGenesis(cfg.GenesisFile); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) initGenesis(path string) error {
	initialized, err := n.state.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}
	path = strings.TrimSpace(path)
	if path == "" {
		n.logger.Warn("no genesis file configured; starting without bonded stake")
		return nil
	}
	spec, err := genesis.Load(path)
	if err != nil {
		return err
	}
	if err := spec.Apply(n.state); err != nil {
		return err
	}
	written, err := n.state.Commit()
	if err != nil {
		return err
	}
	n.metrics.AddCommitWrites(written)
	n.logger.Info("genesis applied",
		slog.String("file", path),
		slog.Int("validators", len(spec.Validators)))
	return nil
}

// BeginBlock advances the block height. Crossing into a new epoch carries
// the previous stake distribution forward and expires stale tallies; any
// retained deposits are returned.
func (n *Node) BeginBlock(height uint64) ([]events.TransfersToChain, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	current, err := n.state.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	if err := n.state.SetBlockHeight(height); err != nil {
		return nil, err
	}
	next := n.epochs.EpochAt(height)
	if next <= current {
		return nil, nil
	}
	checkpoint := n.state.Checkpoint()
	retained, err := n.advanceEpoch(current, next)
	if err != nil {
		n.state.RevertTo(checkpoint)
		return nil, err
	}
	n.logger.Info("epoch advanced",
		slog.Uint64("height", height),
		slog.Uint64("epoch", uint64(next)))
	return retained, nil
}

func (n *Node) advanceEpoch(current, next epoch.Epoch) ([]events.TransfersToChain, error) {
	if err := n.state.SetCurrentEpoch(next); err != nil {
		return nil, err
	}
	if _, err := n.state.CarryStake(current, next); err != nil {
		return nil, err
	}
	return n.processor.EndEpoch()
}

// DeliverEthereumEvents applies a validator's deposit votes and returns the
// deposits that became seen. A rejected extension leaves the rest of the
// block untouched.
func (n *Node) DeliverEthereumEvents(ext events.EventsVoteExtension) ([]events.TransfersToChain, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.ApplyEthereumEvents(ext)
}

// DeliverValidatorSetUpdate applies a validator's vote on the next validator
// set.
func (n *Node) DeliverValidatorSetUpdate(ext events.ValsetVoteExtension) (bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.processor.ApplyValidatorSetUpdate(ext)
}

// SetValidatorStake records a validator's bonded stake for an epoch.
func (n *Node) SetValidatorStake(e epoch.Epoch, addr common.Address, amount types.Amount) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.SetValidatorStake(e, addr, amount)
}

// Commit flushes the block's writes to the database.
func (n *Node) Commit() (int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	written, err := n.state.Commit()
	if err != nil {
		return 0, err
	}
	n.metrics.AddCommitWrites(written)
	return written, nil
}

// Events drains the events emitted since the last call. Callers
// normally collect them right after Commit.
func (n *Node) Events() []chainevents.Record {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.events.Drain()
}

// Discard drops every write made since the last commit along with the
// events emitted by them.
func (n *Node) Discard() {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.state.Discard()
	n.events.Drain()
}

// Snapshot returns a read-only view of committed state. The caller must
// release it.
func (n *Node) Snapshot() (*state.View, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.View()
}

// PendingEvents lists the committed deposit tallies.
func (n *Node) PendingEvents() ([]bridge.PendingEvent, error) {
	view, err := n.Snapshot()
	if err != nil {
		return nil, err
	}
	defer view.Release()
	return bridge.PendingEvents(view)
}

// Close releases the database.
func (n *Node) Close() {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.db.Close()
}
