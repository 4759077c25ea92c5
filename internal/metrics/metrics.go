package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for store, manager and migration activity.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
type Metrics struct {
	registry *prometheus.Registry

	// StoreLookups counts config lookups.
	// Labels: result (hit|miss)
	StoreLookups *prometheus.CounterVec

	// StoreConfigs is the number of configs held by the store.
	StoreConfigs prometheus.Gauge

	// StoreLoads counts configuration file loads.
	// Labels: status (success|error)
	StoreLoads *prometheus.CounterVec

	// ConfigsCreated counts synthesized configurations.
	// Labels: strategy (linear|fallback|suggested), result (created|none)
	ConfigsCreated *prometheus.CounterVec

	// CrtcAssignments counts CRTC assignment attempts.
	// Labels: result (success|error)
	CrtcAssignments *prometheus.CounterVec

	// Migrations counts legacy configuration entries by outcome.
	// Labels: result (migrated|failed|invalid|finished)
	Migrations *prometheus.CounterVec
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		StoreLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitorcfg_store_lookups_total",
				Help: "Total number of stored configuration lookups by result",
			},
			[]string{"result"},
		),
		StoreConfigs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "monitorcfg_store_configs",
				Help: "Number of configurations held by the store",
			},
		),
		StoreLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitorcfg_store_loads_total",
				Help: "Total number of configuration file loads by status",
			},
			[]string{"status"},
		),
		ConfigsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitorcfg_configs_created_total",
				Help: "Total number of synthesized configurations by strategy and result",
			},
			[]string{"strategy", "result"},
		),
		CrtcAssignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitorcfg_crtc_assignments_total",
				Help: "Total number of CRTC assignment attempts by result",
			},
			[]string{"result"},
		),
		Migrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitorcfg_migrations_total",
				Help: "Total number of legacy configuration entries by migration result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Lookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.StoreLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetStoreConfigs(n int) {
	if m == nil {
		return
	}
	m.StoreConfigs.Set(float64(n))
}

func (m *Metrics) Load(err error) {
	if m == nil {
		return
	}
	m.StoreLoads.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) Created(strategy string, created bool) {
	if m == nil {
		return
	}
	result := "none"
	if created {
		result = "created"
	}
	m.ConfigsCreated.WithLabelValues(strategy, result).Inc()
}

func (m *Metrics) Assigned(err error) {
	if m == nil {
		return
	}
	m.CrtcAssignments.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) Migration(result string) {
	if m == nil {
		return
	}
	m.Migrations.WithLabelValues(result).Inc()
}

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("METRICS_WRITE: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("METRICS_WRITE: %w", err)
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
