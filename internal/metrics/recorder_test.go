package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncEvaluation()
	r.ObserveEvaluateDuration(time.Millisecond)
	r.IncActiveChange("scheduled")
	r.AddExpired(3)
	r.IncSubmission("tool_pushed")
	r.IncPersistenceFailure()
	r.IncGenerationResult(true)
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncEvaluation()
	r.IncEvaluation()
	r.IncActiveChange("manual_override")
	r.IncActiveChange("")
	r.AddExpired(2)
	r.AddExpired(-1) // ignored
	r.IncSubmission("scheduled")
	r.IncPersistenceFailure()
	r.IncGenerationResult(true)
	r.IncGenerationResult(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.evaluations))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.activeChanges.WithLabelValues("manual_override")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.activeChanges.WithLabelValues("none")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.expiredEntries))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.submissions.WithLabelValues("scheduled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.persistFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.generations.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.generations.WithLabelValues("failure")))
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.IncEvaluation()
	r.IncActiveChange("scheduled")
	r.AddExpired(1)
	r.IncPersistenceFailure()
}
