package monitorconfig

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"monitorcfg/internal/monitor"
)

// ConfigFlags mark how a MonitorsConfig came to be.
type ConfigFlags uint32

const (
	FlagNone ConfigFlags = 0
	// FlagMigrated marks a config converted from the legacy format whose
	// scales and layout mode are not final yet.
	FlagMigrated ConfigFlags = 1 << 0
)

// MonitorConfig pins one monitor to a mode.
type MonitorConfig struct {
	Spec                *monitor.Spec     `json:"spec"`
	Mode                *monitor.ModeSpec `json:"mode"`
	EnableUnderscanning bool              `json:"enableUnderscanning,omitempty"`
}

// LogicalMonitorConfig is a region of the desktop showing the same content on
// one or more monitors.
type LogicalMonitorConfig struct {
	Layout         monitor.Rectangle `json:"layout"`
	Transform      monitor.Transform `json:"transform"`
	Scale          float64           `json:"scale"`
	IsPrimary      bool              `json:"primary,omitempty"`
	IsPresentation bool              `json:"presentation,omitempty"`
	MonitorConfigs []*MonitorConfig  `json:"monitors"`
}

// MonitorsConfig is a complete arrangement for one set of connected monitors.
type MonitorsConfig struct {
	Key                   Key                     `json:"key"`
	LogicalMonitorConfigs []*LogicalMonitorConfig `json:"logicalMonitors"`
	DisabledMonitorSpecs  []monitor.Spec          `json:"disabledMonitors,omitempty"`
	LayoutMode            monitor.LayoutMode      `json:"layoutMode"`
	Flags                 ConfigFlags             `json:"flags,omitempty"`
}

// New builds a config and derives its key from the monitors it enables.
func New(logicalMonitors []*LogicalMonitorConfig, layoutMode monitor.LayoutMode, flags ConfigFlags) *MonitorsConfig {
	return &MonitorsConfig{
		Key:                   newKey(logicalMonitors),
		LogicalMonitorConfigs: logicalMonitors,
		LayoutMode:            layoutMode,
		Flags:                 flags,
	}
}

// WithDisabled records monitors that are connected but switched off.
func (c *MonitorsConfig) WithDisabled(specs []monitor.Spec) *MonitorsConfig {
	c.DisabledMonitorSpecs = specs
	return c
}

// Key identifies the set of monitors a config applies to: their specs in
// canonical order.
type Key struct {
	Specs []monitor.Spec `json:"specs"`
}

// NewKey sorts specs into a key. A nil key is returned for no specs.
func NewKey(specs []monitor.Spec) Key {
	if len(specs) == 0 {
		return Key{}
	}
	sorted := slices.Clone(specs)
	slices.SortFunc(sorted, monitor.Spec.Compare)
	return Key{Specs: sorted}
}

func newKey(logicalMonitors []*LogicalMonitorConfig) Key {
	var specs []monitor.Spec
	for _, lm := range logicalMonitors {
		for _, mc := range lm.MonitorConfigs {
			if mc.Spec != nil {
				specs = append(specs, *mc.Spec)
			}
		}
	}
	return NewKey(specs)
}

func (k Key) IsEmpty() bool {
	return len(k.Specs) == 0
}

func (k Key) Equal(o Key) bool {
	return slices.EqualFunc(k.Specs, o.Specs, monitor.Spec.Equal)
}

// Hash is independent of spec order.
func (k Key) Hash() uint64 {
	var hash uint64
	for _, s := range k.Specs {
		hash ^= xxhash.Sum64String(s.Connector) ^
			xxhash.Sum64String(s.Vendor) ^
			xxhash.Sum64String(s.Product) ^
			xxhash.Sum64String(s.Serial)
	}
	return hash
}

// ID is an injective text form of the key, used to index maps.
func (k Key) ID() string {
	var b strings.Builder
	for _, s := range k.Specs {
		for _, field := range []string{s.Connector, s.Vendor, s.Product, s.Serial} {
			b.WriteString(strconv.Quote(field))
		}
		b.WriteByte(';')
	}
	return b.String()
}

func (k Key) String() string {
	parts := make([]string, 0, len(k.Specs))
	for _, s := range k.Specs {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}
