package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontExportsStepCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStorefront(reg)
	metrics.ObserveStep(StepPricing, 250*time.Millisecond, nil)
	metrics.ObserveStep(StepPricing, 100*time.Millisecond, errors.New("boom"))
	metrics.ObserveStep(StepTokenize, 10*time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_step_success", "step", StepPricing); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "checkout_step_failure", "step", StepPricing); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "checkout_step_duration_seconds", "step", StepPricing); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0.3 {
		t.Fatalf("expected duration sum > 0.3, got %f", got)
	}
}

func TestStorefrontAPIAndBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStorefront(reg)
	metrics.ObserveAPI("orders.calculate", "2xx", 40*time.Millisecond)
	metrics.SetBreakerState("storefront-api", 2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if _, err := fetchHistogramSum(mfs, "storefront_api_request_duration_seconds", "endpoint", "orders.calculate"); err != nil {
		t.Fatalf("fetch api duration: %v", err)
	}
	mf := findMetricFamily(mfs, "storefront_api_breaker_state")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetGauge().GetValue() != 2 {
		t.Fatalf("expected breaker gauge of 2, got %v", mf)
	}
}

func TestNilStorefrontIsSafe(t *testing.T) {
	var metrics *Storefront
	metrics.ObserveStep(StepOrder, time.Second, nil)
	metrics.ObserveAPI("x", "2xx", time.Second)
	metrics.SetBreakerState("x", 1)
	NewStorefront(nil).ObserveStep(StepOrder, time.Second, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
