// Package metrics provides Prometheus-based metrics for completions, solver
// runs and chat delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements llm.Recorder, solver.Recorder and the delivery hooks
// of the telegram package.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pipelineRuns    *prometheus.CounterVec
	stepsVerified   *prometheus.CounterVec
	sendsTotal      *prometheus.CounterVec
	sendWait        prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mathbot_llm_requests_total",
				Help: "Completion attempts by provider and status",
			},
			[]string{"provider", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mathbot_llm_request_duration_seconds",
				Help:    "Duration of completion attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		pipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mathbot_pipeline_runs_total",
				Help: "Solver runs by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		stepsVerified: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mathbot_steps_verified_total",
				Help: "Verified solution steps by verdict",
			},
			[]string{"verdict"},
		),
		sendsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mathbot_telegram_sends_total",
				Help: "Outgoing chat messages by parse mode and status",
			},
			[]string{"parse_mode", "status"},
		),
		sendWait: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mathbot_telegram_send_wait_seconds",
				Help:    "Time spent waiting for the outbound rate limiter",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (r *Recorder) ObserveCompletion(provider, status string, seconds float64) {
	r.requestsTotal.WithLabelValues(provider, status).Inc()
	r.requestDuration.WithLabelValues(provider).Observe(seconds)
}

func (r *Recorder) ObservePipeline(strategy, outcome string) {
	r.pipelineRuns.WithLabelValues(strategy, outcome).Inc()
}

func (r *Recorder) ObserveStep(correct bool) {
	verdict := "incorrect"
	if correct {
		verdict = "correct"
	}
	r.stepsVerified.WithLabelValues(verdict).Inc()
}

// ObserveSend records one delivery try. parseMode is empty for plain text.
func (r *Recorder) ObserveSend(parseMode string, err error) {
	if parseMode == "" {
		parseMode = "plain"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.sendsTotal.WithLabelValues(parseMode, status).Inc()
}

func (r *Recorder) ObserveSendWait(d time.Duration) {
	r.sendWait.Observe(d.Seconds())
}
