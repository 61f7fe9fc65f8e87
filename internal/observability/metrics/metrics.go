package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "integrations",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Scheduler job executions by job name.",
	}, []string{"job"})

	jobErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "integrations",
		Subsystem: "scheduler",
		Name:      "job_errors_total",
		Help:      "Scheduler job failures by job name.",
	}, []string{"job"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "integrations",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Scheduler job wall-clock duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})

	probeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "integrations",
		Subsystem: "probe",
		Name:      "results_total",
		Help:      "Connection probe outcomes by integration type.",
	}, []string{"type", "outcome"})

	providerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "integrations",
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Outbound provider HTTP calls by outcome.",
	}, []string{"outcome"})

	providerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "integrations",
		Subsystem: "provider",
		Name:      "call_duration_seconds",
		Help:      "Outbound provider HTTP call latency.",
		Buckets:   prometheus.DefBuckets,
	})
)

func IncJobRun(job string) { jobRuns.WithLabelValues(job).Inc() }

func IncJobError(job string) { jobErrors.WithLabelValues(job).Inc() }

func ObserveJobDuration(job string, d time.Duration) {
	jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func IncProbeResult(integrationType string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	probeResults.WithLabelValues(integrationType, outcome).Inc()
}

func IncProviderCall(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	providerCalls.WithLabelValues(outcome).Inc()
}

func ObserveProviderLatency(d time.Duration) {
	providerLatency.Observe(d.Seconds())
}
