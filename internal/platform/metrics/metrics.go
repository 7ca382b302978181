package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote outcomes used as the outcome label of VotesCast.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeConflict  = "conflict"
)

// Metrics provides observability for the election lifecycle.
type Metrics struct {
	VotesCast     *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	VoteConflicts prometheus.Counter
	VoteLatency   prometheus.Histogram
	StatsCache    *prometheus.CounterVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VotesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "election_votes_total",
			Help: "Vote attempts by outcome",
		}, []string{"outcome"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "election_transitions_total",
			Help: "Election lifecycle transitions",
		}, []string{"transition"}), // created, started, closed

		VoteConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_vote_conflicts_total",
			Help: "Optimistic concurrency conflicts retried while writing an election",
		}),

		VoteLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "election_vote_duration_seconds",
			Help:    "Duration of cast vote commands including retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		StatsCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "election_stats_cache_total",
			Help: "Statistics cache lookups by result",
		}, []string{"result"}), // hit, miss
	}
}

func (m *Metrics) IncrementVote(outcome string) {
	if m != nil {
		m.VotesCast.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTransition(transition string) {
	if m != nil {
		m.Transitions.WithLabelValues(transition).Inc()
	}
}

func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.VoteConflicts.Inc()
	}
}

func (m *Metrics) ObserveVoteLatency(d time.Duration) {
	if m != nil {
		m.VoteLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementStatsCache(result string) {
	if m != nil {
		m.StatsCache.WithLabelValues(result).Inc()
	}
}
