// Package manager picks the monitor configuration for the connected hardware
// and turns it into CRTC and output assignments.
package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"monitorcfg/internal/metrics"
	"monitorcfg/internal/migrate"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
	"monitorcfg/internal/store"
)

var (
	// ErrNoAvailableCrtc means every CRTC an output could use is taken.
	ErrNoAvailableCrtc = errors.New("no available CRTC")
	// ErrNoCurrentConfig is returned by SaveCurrent before SetCurrent.
	ErrNoCurrentConfig = errors.New("no current monitor configuration")
)

// Strategy names a way of obtaining a configuration.
type Strategy string

const (
	StrategyStored    Strategy = "stored"
	StrategySuggested Strategy = "suggested"
	StrategyLinear    Strategy = "linear"
	StrategyFallback  Strategy = "fallback"
)

// Strategies lists the strategies in the order they are tried when
// configuring the hardware.
var Strategies = []Strategy{StrategyStored, StrategySuggested, StrategyLinear, StrategyFallback}

func ParseStrategy(s string) (Strategy, error) {
	for _, strategy := range Strategies {
		if string(strategy) == s {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("MANAGER_STRATEGY: unknown strategy %q", s)
}

// CrtcInfo is the state one CRTC should be programmed with. X and Y are in
// desktop coordinates.
type CrtcInfo struct {
	Crtc      *monitor.Crtc
	Mode      *monitor.CrtcMode
	X         int
	Y         int
	Transform monitor.Transform
	Outputs   []*monitor.Output
}

// OutputInfo carries the per-output flags of an assignment.
type OutputInfo struct {
	Output          *monitor.Output
	IsPrimary       bool
	IsPresentation  bool
	IsUnderscanning bool
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// OnChange is called by SetCurrent with the new and the replaced config.
	OnChange func(current, previous *monitorconfig.MonitorsConfig)
}

type Manager struct {
	hw       *monitor.Hardware
	store    *store.ConfigStore
	logger   *slog.Logger
	metrics  *metrics.Metrics
	onChange func(current, previous *monitorconfig.MonitorsConfig)

	mu       sync.Mutex
	current  *monitorconfig.MonitorsConfig
	previous *monitorconfig.MonitorsConfig
}

func New(hw *monitor.Hardware, st *store.ConfigStore, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		hw:       hw,
		store:    st,
		logger:   logger,
		metrics:  opts.Metrics,
		onChange: opts.OnChange,
	}
}

func (m *Manager) Store() *store.ConfigStore { return m.store }

func (m *Manager) Hardware() *monitor.Hardware { return m.hw }

// CurrentKey is the key of the monitors that should be lit: every connected
// monitor except a laptop panel behind a closed lid.
func (m *Manager) CurrentKey() monitorconfig.Key {
	var specs []monitor.Spec
	for _, mon := range m.hw.Monitors() {
		if mon.IsLaptopPanel() && m.hw.IsLidClosed() {
			continue
		}
		specs = append(specs, mon.Spec())
	}
	return monitorconfig.NewKey(specs)
}

// GetStored looks up the stored config for the current monitors. A config
// migrated from the legacy format is finished first; if that fails it is
// dropped from the store and the lookup misses.
func (m *Manager) GetStored() (*monitorconfig.MonitorsConfig, bool) {
	key := m.CurrentKey()
	if key.IsEmpty() {
		return nil, false
	}
	cfg, ok := m.store.Lookup(key)
	if !ok {
		return nil, false
	}
	if cfg.Flags&monitorconfig.FlagMigrated != 0 {
		finished, err := migrate.Finish(m.hw, m.store, cfg)
		if err != nil {
			m.logger.Warn("Failed to finish monitors config migration", "key", key.String(), "error", err)
			m.store.Remove(key)
			return nil, false
		}
		cfg = finished
	}
	return cfg, true
}

// Create returns a new config built with strategy, or nil if the strategy has
// nothing to offer for the current hardware. StrategyStored is a lookup.
func (m *Manager) Create(strategy Strategy) *monitorconfig.MonitorsConfig {
	switch strategy {
	case StrategyStored:
		cfg, _ := m.GetStored()
		return cfg
	case StrategySuggested:
		return m.CreateSuggested()
	case StrategyLinear:
		return m.CreateLinear()
	case StrategyFallback:
		return m.CreateFallback()
	}
	return nil
}

func (m *Manager) SetCurrent(cfg *monitorconfig.MonitorsConfig) {
	m.mu.Lock()
	m.previous = m.current
	m.current = cfg
	current, previous := m.current, m.previous
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(current, previous)
	}
}

func (m *Manager) Current() *monitorconfig.MonitorsConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Previous() *monitorconfig.MonitorsConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// SaveCurrent adds the current config to the store.
func (m *Manager) SaveCurrent() error {
	cfg := m.Current()
	if cfg == nil {
		return fmt.Errorf("MANAGER_NO_CURRENT: %w", ErrNoCurrentConfig)
	}
	m.store.Add(cfg)
	return nil
}
