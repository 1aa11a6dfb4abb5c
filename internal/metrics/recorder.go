// Package metrics defines observability hooks for the arbitration loop.
package metrics

import "time"

// Recorder defines observability hooks for arbitration and persistence.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncEvaluation()
	ObserveEvaluateDuration(d time.Duration)
	IncActiveChange(source string) // source of the new active entry; "none" when cleared
	AddExpired(n int)
	IncSubmission(source string)
	IncPersistenceFailure()
	IncGenerationResult(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncEvaluation()                        {}
func (NoopRecorder) ObserveEvaluateDuration(time.Duration) {}
func (NoopRecorder) IncActiveChange(string)                {}
func (NoopRecorder) AddExpired(int)                        {}
func (NoopRecorder) IncSubmission(string)                  {}
func (NoopRecorder) IncPersistenceFailure()                {}
func (NoopRecorder) IncGenerationResult(bool)              {}
