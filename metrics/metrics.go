// Package metrics counts and times the calls made to SMS providers.
package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

var (
	providerCalls = prom.NewCounterVec(
		prom.CounterOpts{
			Name: "gsmsapi_provider_calls_total",
			Help: "Count of SMS provider calls",
		},
		[]string{"provider", "method", "result"},
	)
	providerDuration = prom.NewHistogramVec(
		prom.HistogramOpts{
			Name:    "gsmsapi_provider_call_duration_seconds",
			Help:    "Duration of SMS provider calls",
			Buckets: prom.DefBuckets,
		},
		[]string{"provider", "method"},
	)
)

func init() {
	prom.MustRegister(providerCalls, providerDuration)
}

// Observe runs fn and records its duration and outcome for the provider
// method. The error of fn is returned unchanged.
func Observe(provider, method string, fn func() error) error {
	timer := prom.NewTimer(providerDuration.WithLabelValues(provider, method))
	err := fn()
	timer.ObserveDuration()
	result := "success"
	if err != nil {
		result = "error"
	}
	providerCalls.WithLabelValues(provider, method, result).Inc()
	return err
}
