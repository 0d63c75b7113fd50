// Package utils provides ambient infrastructure shared by the diskcache and pool packages:
// structured logging, build metadata, and an invariant-violation reporting helper.
//
// Invariants are conditions in code that must be true; otherwise, there is a bug. Think of what
// you'd panic() on (equivalent to assert in other languages), but you don't want to crash the
// host process just because of a violation in, say, a background trim pass. If an invariant is
// violated, an error is logged and a monitoring counter is incremented.
//
// Do not use invariants for conditions that depend on external factors (a failing rename is an
// IoError, not an invariant). Reserve them for internal bookkeeping that this package itself
// guarantees, e.g. "a committed entry always has every index's length populated."
package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cachekit_invariants_total",
	Help: "The total number of invariant violations.",
}, []string{
	"module", // The module in which this invariant occurred.
	"type",   // The type of the invariant that occurred.
})

// RaiseInvariant records a violated invariant: bumps a counter, logs at error level, and panics
// when running under test mode so that violations surface immediately in CI.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + invariantType)
	}
}

// GetMetricValue returns the current value of the invariant counter for the given module/type.
func GetMetricValue(module, invariantType string) int {
	metric := &promclient.Metric{}
	if err := invariantsMetric.WithLabelValues(module, invariantType).Write(metric); err != nil {
		slog.Error(err.Error())
		return 0
	}
	return int(metric.Counter.GetValue())
}
