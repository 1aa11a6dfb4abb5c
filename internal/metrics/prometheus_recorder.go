package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry *prom.Registry

	evaluations      prom.Counter
	evaluateDuration prom.Histogram
	activeChanges    *prom.CounterVec
	expiredEntries   prom.Counter
	submissions      *prom.CounterVec
	persistFailures  prom.Counter
	generations      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the presenced metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}

	pr.evaluations = prom.NewCounter(prom.CounterOpts{
		Namespace: "presenced",
		Name:      "evaluations_total",
		Help:      "Arbitration evaluation runs",
	})
	pr.evaluateDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "presenced",
		Name:      "evaluate_duration_seconds",
		Help:      "Duration of arbitration evaluations",
		Buckets:   prom.DefBuckets,
	})
	pr.activeChanges = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "presenced",
		Name:      "active_changes_total",
		Help:      "Active status transitions by new source",
	}, []string{"source"})
	pr.expiredEntries = prom.NewCounter(prom.CounterOpts{
		Namespace: "presenced",
		Name:      "expired_entries_total",
		Help:      "Candidate entries removed by the expiration sweep",
	})
	pr.submissions = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "presenced",
		Name:      "submissions_total",
		Help:      "Candidate submissions by source",
	}, []string{"source"})
	pr.persistFailures = prom.NewCounter(prom.CounterOpts{
		Namespace: "presenced",
		Name:      "persistence_failures_total",
		Help:      "Snapshot writes that failed or timed out",
	})
	pr.generations = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "presenced",
		Name:      "schedule_generations_total",
		Help:      "Daily schedule generation attempts by result",
	}, []string{"result"})

	reg.MustRegister(pr.evaluations, pr.evaluateDuration, pr.activeChanges,
		pr.expiredEntries, pr.submissions, pr.persistFailures, pr.generations)
	return pr
}

// Handler exposes the registry for the /metrics endpoint.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncEvaluation() {
	if p == nil || p.evaluations == nil {
		return
	}
	p.evaluations.Inc()
}

func (p *PrometheusRecorder) ObserveEvaluateDuration(d time.Duration) {
	if p == nil || p.evaluateDuration == nil {
		return
	}
	p.evaluateDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncActiveChange(source string) {
	if p == nil || p.activeChanges == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	p.activeChanges.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) AddExpired(n int) {
	if p == nil || p.expiredEntries == nil || n <= 0 {
		return
	}
	p.expiredEntries.Add(float64(n))
}

func (p *PrometheusRecorder) IncSubmission(source string) {
	if p == nil || p.submissions == nil {
		return
	}
	p.submissions.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncPersistenceFailure() {
	if p == nil || p.persistFailures == nil {
		return
	}
	p.persistFailures.Inc()
}

func (p *PrometheusRecorder) IncGenerationResult(success bool) {
	if p == nil || p.generations == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	p.generations.WithLabelValues(result).Inc()
}
