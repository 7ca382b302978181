package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementVote(OutcomeAccepted)
		m.IncrementTransition("created")
		m.IncrementConflict()
		m.ObserveVoteLatency(time.Millisecond)
		m.IncrementStatsCache("hit")
	})
}

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementVote(OutcomeAccepted)
	m.IncrementVote(OutcomeAccepted)
	m.IncrementVote(OutcomeDuplicate)
	m.IncrementTransition("closed")
	m.ObserveVoteLatency(2 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.VotesCast.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues(OutcomeDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("closed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.VoteLatency))
}
