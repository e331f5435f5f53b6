package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultNotFound ResultLabel = "not_found"
	ResultFailed   ResultLabel = "failed"
)

// Recorder defines observability hooks for CMS traffic and site generation.
type Recorder interface {
	ObserveCMSRequest(op string, d time.Duration, result ResultLabel)
	IncPageGenerated(kind string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncLoadMore(result ResultLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCMSRequest(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncPageGenerated(string, ResultLabel) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncLoadMore(ResultLabel) {}
