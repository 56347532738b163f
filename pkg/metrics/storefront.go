package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout step labels.
const (
	StepEnter    = "enter"
	StepSDKInit  = "sdk_init"
	StepPricing  = "pricing"
	StepTokenize = "tokenize"
	StepOrder    = "order"
)

// Storefront records checkout step outcomes and REST API latency.
type Storefront struct {
	stepDuration *prometheus.HistogramVec
	stepSuccess  *prometheus.CounterVec
	stepFailure  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	breakerState *prometheus.GaugeVec
}

// NewStorefront registers the storefront metrics on the provided registerer. A nil
// registerer yields a recorder that drops every observation.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_step_duration_seconds",
		Help:    "Duration of checkout steps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	stepSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_step_success",
		Help: "Successful checkout steps.",
	}, []string{"step"})
	stepFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_step_failure",
		Help: "Failed checkout steps.",
	}, []string{"step"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_api_request_duration_seconds",
		Help:    "Duration of storefront REST API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_api_breaker_state",
		Help: "Circuit breaker state of the storefront API client (0 closed, 1 half-open, 2 open).",
	}, []string{"breaker"})
	reg.MustRegister(stepDuration, stepSuccess, stepFailure, apiDuration, breakerState)
	return &Storefront{
		stepDuration: stepDuration,
		stepSuccess:  stepSuccess,
		stepFailure:  stepFailure,
		apiDuration:  apiDuration,
		breakerState: breakerState,
	}
}

// ObserveStep records the duration and outcome of one checkout step.
func (s *Storefront) ObserveStep(step string, duration time.Duration, err error) {
	if s == nil || s.stepDuration == nil {
		return
	}
	step = normalizeLabel(step)
	s.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
	if err != nil {
		s.stepFailure.WithLabelValues(step).Inc()
		return
	}
	s.stepSuccess.WithLabelValues(step).Inc()
}

// ObserveAPI records one REST API round trip. outcome is a status class such as "2xx",
// "transport" or "breaker_open".
func (s *Storefront) ObserveAPI(endpoint, outcome string, duration time.Duration) {
	if s == nil || s.apiDuration == nil {
		return
	}
	s.apiDuration.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// SetBreakerState publishes the numeric breaker state.
func (s *Storefront) SetBreakerState(name string, state int) {
	if s == nil || s.breakerState == nil {
		return
	}
	s.breakerState.WithLabelValues(normalizeLabel(name)).Set(float64(state))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
