// Package metrics exposes Prometheus instrumentation for the configuration
// registry, configuration sources and the credential vault.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results recorded by the registry.
const (
	ResultHit   = "hit"
	ResultLoad  = "load"
	ResultError = "error"
)

var (
	registryLookupsTotal *prometheus.CounterVec
	sourceLoadDuration   *prometheus.HistogramVec
	vaultOperationsTotal *prometheus.CounterVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers all collectors with the default Prometheus registry.
// It is safe to call more than once; recorders are no-ops until it runs.
func InitMetrics() {
	metricsOnce.Do(func() {
		registryLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envvault_registry_lookups_total",
				Help: "Configuration registry lookups by outcome",
			},
			[]string{"registry", "result"},
		)

		sourceLoadDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "envvault_source_load_duration_seconds",
				Help:    "Time spent reading a configuration file from disk",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"format"},
		)

		vaultOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "envvault_vault_operations_total",
				Help: "Credential vault operations by outcome",
			},
			[]string{"operation", "status"},
		)

		metricsRegistered = true
	})
}

// RecordRegistryLookup counts a registry lookup for the named registry.
func RecordRegistryLookup(registry, result string) {
	if !metricsRegistered || registryLookupsTotal == nil {
		return
	}
	registryLookupsTotal.WithLabelValues(registry, result).Inc()
}

// RecordSourceLoad observes how long a file load took.
func RecordSourceLoad(format string, seconds float64) {
	if !metricsRegistered || sourceLoadDuration == nil {
		return
	}
	sourceLoadDuration.WithLabelValues(format).Observe(seconds)
}

// RecordVaultOperation counts an encrypt, decrypt or keygen call.
func RecordVaultOperation(operation string, err error) {
	if !metricsRegistered || vaultOperationsTotal == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	vaultOperationsTotal.WithLabelValues(operation, status).Inc()
}

// WriteTextfile dumps the default gatherer in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
