package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type BridgeMetrics struct {
	votesApplied   *prometheus.CounterVec
	votesIgnored   *prometheus.CounterVec
	talliesSeen    *prometheus.CounterVec
	talliesDeleted *prometheus.CounterVec
	votingPower    *prometheus.GaugeVec
	commitWrites   prometheus.Counter
}

var (
	bridgeOnce     sync.Once
	bridgeRegistry *BridgeMetrics
)

// Bridge returns the lazily registered bridge tally metrics.
func Bridge() *BridgeMetrics {
	bridgeOnce.Do(func() {
		bridgeRegistry = &BridgeMetrics{
			votesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bridge_votes_applied_total",
				Help: "Count of validator votes recorded into a tally by kind.",
			}, []string{"kind"}),
			votesIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bridge_votes_ignored_total",
				Help: "Count of repeated or late votes that did not change a tally.",
			}, []string{"kind"}),
			talliesSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bridge_tallies_seen_total",
				Help: "Count of tallies that crossed the seen threshold.",
			}, []string{"kind"}),
			talliesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bridge_tallies_deleted_total",
				Help: "Count of deleted tallies by kind and whether the body was retained.",
			}, []string{"kind", "outcome"}),
			votingPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "bridge_tally_voting_power",
				Help: "Fraction of current stake behind the most recently updated tally.",
			}, []string{"kind"}),
			commitWrites: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "bridge_state_commit_writes_total",
				Help: "Number of keys flushed to the database at block commits.",
			}),
		}
		prometheus.MustRegister(
			bridgeRegistry.votesApplied,
			bridgeRegistry.votesIgnored,
			bridgeRegistry.talliesSeen,
			bridgeRegistry.talliesDeleted,
			bridgeRegistry.votingPower,
			bridgeRegistry.commitWrites,
		)
	})
	return bridgeRegistry
}

func normaliseKind(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}

func (m *BridgeMetrics) ObserveVotes(kind string, applied, ignored int) {
	if m == nil {
		return
	}
	kind = normaliseKind(kind)
	if applied > 0 {
		m.votesApplied.WithLabelValues(kind).Add(float64(applied))
	}
	if ignored > 0 {
		m.votesIgnored.WithLabelValues(kind).Add(float64(ignored))
	}
}

func (m *BridgeMetrics) IncSeen(kind string) {
	if m == nil {
		return
	}
	m.talliesSeen.WithLabelValues(normaliseKind(kind)).Inc()
}

func (m *BridgeMetrics) ObserveDeleted(kind string, retained bool) {
	if m == nil {
		return
	}
	outcome := "dropped"
	if retained {
		outcome = "retained"
	}
	m.talliesDeleted.WithLabelValues(normaliseKind(kind), outcome).Inc()
}

func (m *BridgeMetrics) SetVotingPower(kind string, fraction float64) {
	if m == nil {
		return
	}
	m.votingPower.WithLabelValues(normaliseKind(kind)).Set(fraction)
}

func (m *BridgeMetrics) AddCommitWrites(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.commitWrites.Add(float64(n))
}

// VotesAppliedVec exposes the underlying collector for tests.
func (m *BridgeMetrics) VotesAppliedVec() *prometheus.CounterVec { return m.votesApplied }

func (m *BridgeMetrics) VotesIgnoredVec() *prometheus.CounterVec { return m.votesIgnored }

func (m *BridgeMetrics) TalliesSeenVec() *prometheus.CounterVec { return m.talliesSeen }

func (m *BridgeMetrics) TalliesDeletedVec() *prometheus.CounterVec { return m.talliesDeleted }
