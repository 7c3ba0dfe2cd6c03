// Package metrics exposes audit workflow counters on a private Prometheus
// registry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blind_auditor"

const (
	OutcomeApproved   = "approved"
	OutcomeRejected   = "rejected"
	OutcomeOverridden = "overridden"
)

type Recorder struct {
	registry      *prometheus.Registry
	drafts        prometheus.Counter
	results       *prometheus.CounterVec
	limitExceeded prometheus.Counter
	resets        prometheus.Counter
	ruleMutations *prometheus.CounterVec
	retryCount    prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		drafts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_submitted_total",
			Help:      "Drafts submitted for audit.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_results_total",
			Help:      "Audit results by outcome. Overridden results are also counted as rejected.",
		}, []string{"outcome"}),
		limitExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_exceeded_total",
			Help:      "Drafts refused because the retry limit was reached.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Explicit session resets.",
		}),
		ruleMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_mutations_total",
			Help:      "Rule store mutations by action and result.",
		}, []string{"action", "result"}),
		retryCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_retry_count",
			Help:      "Retry counter of the active session.",
		}),
	}

	r.registry.MustRegister(
		r.drafts,
		r.results,
		r.limitExceeded,
		r.resets,
		r.ruleMutations,
		r.retryCount,
		collectors.NewGoCollector(),
	)

	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) DraftSubmitted() {
	if r == nil {
		return
	}
	r.drafts.Inc()
}

func (r *Recorder) AuditResult(outcome string) {
	if r == nil {
		return
	}
	r.results.WithLabelValues(outcome).Inc()
}

func (r *Recorder) LimitExceeded() {
	if r == nil {
		return
	}
	r.limitExceeded.Inc()
}

func (r *Recorder) SessionReset() {
	if r == nil {
		return
	}
	r.resets.Inc()
}

func (r *Recorder) RuleMutation(action string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ruleMutations.WithLabelValues(action, result).Inc()
}

func (r *Recorder) SetRetryCount(n int) {
	if r == nil {
		return
	}
	r.retryCount.Set(float64(n))
}
