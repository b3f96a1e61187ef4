package bridge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"nhbbridge/bridge/events"
	"nhbbridge/bridge/votes"
	"nhbbridge/core/epoch"
	nhberrors "nhbbridge/core/errors"
	chainevents "nhbbridge/core/events"
	"nhbbridge/core/state"
	"nhbbridge/core/types"
	"nhbbridge/observability/logging"
	"nhbbridge/observability/metrics"
)

// Processor applies bridge votes delivered with a block to the tallies in
// state. It is driven by the state transition and shares its single-writer
// Manager; it must not be used concurrently.
type Processor struct {
	state   *state.Manager
	policy  votes.QuorumPolicy
	maxAge  epoch.Epoch
	logger  *slog.Logger
	metrics *metrics.BridgeMetrics
	emitter chainevents.Emitter
}

// NewProcessor wires a processor over mgr. Unseen tallies older than maxAge
// epochs are expired by EndEpoch. A nil metrics registry disables metrics.
func NewProcessor(mgr *state.Manager, policy votes.QuorumPolicy, maxAge epoch.Epoch, logger *slog.Logger, m *metrics.BridgeMetrics) (*Processor, error) {
	if mgr == nil {
		return nil, fmt.Errorf("bridge: state manager required")
	}
	if policy == nil {
		return nil, fmt.Errorf("bridge: quorum policy required")
	}
	if maxAge == 0 {
		return nil, fmt.Errorf("bridge: expiry age must be greater than zero")
	}
	return &Processor{
		state:   mgr,
		policy:  policy,
		maxAge:  maxAge,
		logger:  logging.OrDefault(logger).With("component", "bridge"),
		metrics: m,
		emitter: chainevents.NoopEmitter{},
	}, nil
}

// SetEmitter routes tally events to e. A nil emitter discards them.
func (p *Processor) SetEmitter(e chainevents.Emitter) {
	if e == nil {
		e = chainevents.NoopEmitter{}
	}
	p.emitter = e
}

// ApplyEthereumEvents records one validator's vote on every event in ext and
// returns the events that became seen as a result, in the order given. The
// extension is applied as a whole: if any event fails, none of its writes
// remain in the write log.
func (p *Processor) ApplyEthereumEvents(ext events.EventsVoteExtension) ([]events.TransfersToChain, error) {
	if err := ext.Validate(); err != nil {
		return nil, err
	}
	vote, err := p.voteOf(ext.Validator, ext.Height)
	if err != nil {
		return nil, err
	}
	checkpoint := p.state.Checkpoint()
	outcomes := make([]votes.Outcome, 0, len(ext.Events))
	for _, event := range ext.Events {
		outcome, err := votes.Apply(p.state, event, []votes.Vote{vote}, p.policy)
		if err != nil {
			p.state.RevertTo(checkpoint)
			return nil, p.fail(events.KindTransfersToChain, event.Hash(), err)
		}
		outcomes = append(outcomes, outcome)
	}
	var seen []events.TransfersToChain
	for i, event := range ext.Events {
		p.record(events.KindTransfersToChain, event.Hash(), outcomes[i])
		if outcomes[i].NewlySeen {
			seen = append(seen, event)
		}
	}
	return seen, nil
}

// ApplyValidatorSetUpdate records one validator's vote on the next validator
// set and reports whether the update became seen.
func (p *Processor) ApplyValidatorSetUpdate(ext events.ValsetVoteExtension) (bool, error) {
	if err := ext.Validate(); err != nil {
		return false, err
	}
	vote, err := p.voteOf(ext.Validator, ext.Height)
	if err != nil {
		return false, err
	}
	checkpoint := p.state.Checkpoint()
	outcome, err := votes.Apply(p.state, ext.Update, []votes.Vote{vote}, p.policy)
	if err != nil {
		p.state.RevertTo(checkpoint)
		return false, p.fail(events.KindValidatorSetUpdate, ext.Update.Hash(), err)
	}
	p.record(events.KindValidatorSetUpdate, ext.Update.Hash(), outcome)
	return outcome.NewlySeen, nil
}

// EndEpoch expires stale unseen tallies. Deposits that still had more than a
// third of stake behind them are returned for mandatory processing. With no
// stake bonded in the current epoch no fraction can be measured, so the sweep
// is skipped and retried at the next boundary.
func (p *Processor) EndEpoch() ([]events.TransfersToChain, error) {
	current, err := p.state.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	total, err := p.state.TotalStakeAt(current)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		p.logger.Warn("no stake bonded; skipping bridge tally expiry",
			slog.Uint64("epoch", uint64(current)))
		return nil, nil
	}

	checkpoint := p.state.Checkpoint()
	retained, removed, err := votes.Expire[events.TransfersToChain](p.state, p.maxAge)
	if err != nil {
		p.state.RevertTo(checkpoint)
		return nil, p.fail(events.KindTransfersToChain, common.Hash{}, err)
	}
	updates, removedUpdates, err := votes.Expire[events.ValidatorSetUpdate](p.state, p.maxAge)
	if err != nil {
		p.state.RevertTo(checkpoint)
		return nil, p.fail(events.KindValidatorSetUpdate, common.Hash{}, err)
	}

	p.recordExpired(events.KindTransfersToChain, removed, len(retained))
	for _, event := range retained {
		p.emitter.Emit(chainevents.BridgeTallyRetained{Kind: events.KindTransfersToChain, Hash: event.Hash()})
		p.logger.Warn("expired deposit retained for processing",
			slog.String("hash", event.Hash().Hex()),
			slog.String("nonce", event.Nonce.String()),
			slog.Int("transfers", len(event.Transfers)))
	}
	p.recordExpired(events.KindValidatorSetUpdate, removedUpdates, len(updates))
	for _, update := range updates {
		p.emitter.Emit(chainevents.BridgeTallyRetained{Kind: events.KindValidatorSetUpdate, Hash: update.Hash()})
		p.logger.Warn("expired validator set update had more than 1/3 of stake",
			slog.String("hash", update.Hash().Hex()),
			slog.Uint64("epoch", uint64(update.Epoch)))
	}
	return retained, nil
}

// PendingEvent is a deposit tally as seen by queries.
type PendingEvent struct {
	Event events.TransfersToChain
	Tally votes.Tally
	Power types.FractionalVotingPower
}

// PendingEvents lists every deposit tally in r, seen or not, ordered by body
// hash.
func PendingEvents(r state.Reader) ([]PendingEvent, error) {
	it, err := votes.IterPrefix(r, votes.KindPrefix[events.TransfersToChain]())
	if err != nil {
		return nil, err
	}
	var prefixes []votes.Keys[events.TransfersToChain]
	for it.Next() {
		if !votes.IsBodyKey(it.Key()) {
			continue
		}
		keys, err := votes.KeysFromPrefix[events.TransfersToChain](it.Key())
		if err != nil {
			it.Release()
			return nil, err
		}
		prefixes = append(prefixes, keys)
	}
	iterErr := it.Error()
	it.Release()
	if iterErr != nil {
		return nil, iterErr
	}

	out := make([]PendingEvent, 0, len(prefixes))
	for _, keys := range prefixes {
		event, err := votes.ReadBody(r, keys)
		if err != nil {
			return nil, err
		}
		tally, err := votes.Read(r, keys)
		if err != nil {
			return nil, err
		}
		power, err := tally.VotingPower.FractionalStake(r)
		if err != nil {
			return nil, err
		}
		out = append(out, PendingEvent{Event: event, Tally: tally, Power: power})
	}
	return out, nil
}

func (p *Processor) voteOf(validator common.Address, height uint64) (votes.Vote, error) {
	current, err := p.state.CurrentEpoch()
	if err != nil {
		return votes.Vote{}, err
	}
	stake, err := p.state.ValidatorStakeAt(current, validator)
	if err != nil {
		return votes.Vote{}, err
	}
	if stake.IsZero() {
		return votes.Vote{}, fmt.Errorf("%w: %s has no stake bonded at epoch %d", nhberrors.ErrInvalidState, validator.Hex(), current)
	}
	return votes.Vote{Validator: validator, Height: height, Power: stake}, nil
}

func (p *Processor) record(kind string, hash common.Hash, outcome votes.Outcome) {
	p.metrics.ObserveVotes(kind, outcome.Applied, outcome.Ignored)
	if outcome.Changed {
		p.metrics.SetVotingPower(kind, outcome.Power.Float64())
	}
	if outcome.NewlySeen {
		p.metrics.IncSeen(kind)
		p.emitter.Emit(chainevents.BridgeTallySeen{
			Kind:   kind,
			Hash:   hash,
			Power:  outcome.Power.String(),
			Voters: len(outcome.Tally.SeenBy),
		})
		p.logger.Info("bridge tally seen",
			slog.String("kind", kind),
			slog.String("hash", hash.Hex()),
			slog.String("power", outcome.Power.String()),
			slog.Int("voters", len(outcome.Tally.SeenBy)))
		return
	}
	p.logger.Debug("bridge vote processed",
		slog.String("kind", kind),
		slog.String("hash", hash.Hex()),
		slog.Int("applied", outcome.Applied),
		slog.Int("ignored", outcome.Ignored),
		slog.Bool("already_seen", outcome.AlreadySeen))
}

func (p *Processor) recordExpired(kind string, removed, retained int) {
	for i := 0; i < removed; i++ {
		p.metrics.ObserveDeleted(kind, i < retained)
	}
	if removed > 0 {
		p.emitter.Emit(chainevents.BridgeTalliesExpired{Kind: kind, Removed: removed, Retained: retained})
		p.logger.Info("expired bridge tallies",
			slog.String("kind", kind),
			slog.Int("removed", removed),
			slog.Int("retained", retained))
	}
}

// fail surfaces corrupted tally state loudly before handing the error back
// to the state transition.
func (p *Processor) fail(kind string, hash common.Hash, err error) error {
	if errors.Is(err, nhberrors.ErrDeserialization) {
		p.logger.Error("corrupted bridge tally state",
			slog.String("kind", kind),
			slog.String("hash", hash.Hex()),
			slog.Any("error", err))
	}
	return fmt.Errorf("bridge: %s: %w", kind, err)
}
