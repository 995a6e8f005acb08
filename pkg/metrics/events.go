package metrics

import (
	"context"
	"time"
)

const (
	submissionEventName  = "MemoSubmission"
	submissionMetricName = "Custom/Memo/SubmissionDuration"
)

// RecordSubmission reports a finished or rejected submission to Prometheus and,
// when ctx carries an application, to New Relic as a custom event. code is
// empty for successful submissions.
func RecordSubmission(ctx context.Context, outcome, code string, elapsed time.Duration) {
	ObserveSubmission(outcome, code, elapsed)

	nr, ok := applicationFromContext(ctx)
	if !ok {
		return
	}
	nr.RecordCustomEvent(submissionEventName, map[string]interface{}{
		"outcome":    outcome,
		"code":       code,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	nr.RecordCustomMetric(submissionMetricName, float64(elapsed/time.Millisecond))
}

// RecordDuration records a duration metric in milliseconds
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if nr, ok := applicationFromContext(ctx); ok {
		nr.RecordCustomMetric(metricName, float64(duration/time.Millisecond))
	}
}
