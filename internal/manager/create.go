package manager

import (
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

// highestResolutionMonitor returns the monitor whose preferred mode has the
// largest area. Ties go to the earlier monitor.
func (m *Manager) highestResolutionMonitor(externalOnly bool) monitor.Monitor {
	var best monitor.Monitor
	largest := 0
	for _, mon := range m.hw.Monitors() {
		if externalOnly && mon.IsLaptopPanel() {
			continue
		}
		mode := mon.PreferredMode()
		if mode == nil {
			continue
		}
		w, h := mode.Resolution()
		if area := w * h; area > largest {
			best = mon
			largest = area
		}
	}
	return best
}

// primaryMonitor picks the monitor that should hold the primary logical
// monitor. With the lid closed the laptop panel is avoided.
func (m *Manager) primaryMonitor() monitor.Monitor {
	if m.hw.IsLidClosed() {
		if mon := m.hw.PrimaryMonitor(); mon != nil && !mon.IsLaptopPanel() {
			return mon
		}
		if mon := m.highestResolutionMonitor(true); mon != nil {
			return mon
		}
		return m.highestResolutionMonitor(false)
	}
	if mon := m.hw.PrimaryMonitor(); mon != nil {
		return mon
	}
	if mon := m.hw.LaptopPanel(); mon != nil {
		return mon
	}
	return m.highestResolutionMonitor(false)
}

func newMonitorConfig(mon monitor.Monitor, mode *monitor.Mode) *monitorconfig.MonitorConfig {
	spec := mon.Spec()
	modeSpec := mode.Spec
	return &monitorconfig.MonitorConfig{
		Spec:                &spec,
		Mode:                &modeSpec,
		EnableUnderscanning: mon.IsUnderscanning(),
	}
}

// preferredLogicalMonitor puts mon at (x, y) in its preferred mode. When the
// hardware needs one scale for every logical monitor, the primary's scale is
// used. A monitor without modes yields nil.
func (m *Manager) preferredLogicalMonitor(mon monitor.Monitor, x, y int, primary *monitorconfig.LogicalMonitorConfig, layoutMode monitor.LayoutMode) *monitorconfig.LogicalMonitorConfig {
	mode := mon.PreferredMode()
	if mode == nil {
		return nil
	}
	width, height := mode.Resolution()

	var scale float64
	if m.hw.GlobalScaleRequired() && primary != nil {
		scale = primary.Scale
	} else {
		scale = m.hw.CalculateModeScale(mon, mode)
	}

	if layoutMode == monitor.LayoutModeLogical {
		width = int(float64(width) / scale)
		height = int(float64(height) / scale)
	}

	return &monitorconfig.LogicalMonitorConfig{
		Layout:         monitor.Rectangle{X: x, Y: y, Width: width, Height: height},
		Scale:          scale,
		MonitorConfigs: []*monitorconfig.MonitorConfig{newMonitorConfig(mon, mode)},
	}
}

func (m *Manager) primaryLogicalMonitor(primary monitor.Monitor, x, y int, layoutMode monitor.LayoutMode) *monitorconfig.LogicalMonitorConfig {
	lm := m.preferredLogicalMonitor(primary, x, y, nil, layoutMode)
	if lm != nil {
		lm.IsPrimary = true
	}
	return lm
}

// CreateLinear places the primary monitor at the origin and every other lit
// monitor to its right, in hardware order. The result is not verified.
func (m *Manager) CreateLinear() *monitorconfig.MonitorsConfig {
	cfg := m.createLinear()
	m.metrics.Created(string(StrategyLinear), cfg != nil)
	return cfg
}

func (m *Manager) createLinear() *monitorconfig.MonitorsConfig {
	primary := m.primaryMonitor()
	if primary == nil {
		return nil
	}
	layoutMode := m.hw.DefaultLayoutMode()

	primaryLM := m.primaryLogicalMonitor(primary, 0, 0, layoutMode)
	if primaryLM == nil {
		return nil
	}
	logicalMonitors := []*monitorconfig.LogicalMonitorConfig{primaryLM}

	x := primaryLM.Layout.Width
	for _, mon := range m.hw.Monitors() {
		if mon == primary {
			continue
		}
		if mon.IsLaptopPanel() && m.hw.IsLidClosed() {
			continue
		}
		lm := m.preferredLogicalMonitor(mon, x, 0, primaryLM, layoutMode)
		if lm == nil {
			continue
		}
		logicalMonitors = append(logicalMonitors, lm)
		x += lm.Layout.Width
	}
	return monitorconfig.New(logicalMonitors, layoutMode, monitorconfig.FlagNone)
}

// CreateFallback lights only the primary monitor.
func (m *Manager) CreateFallback() *monitorconfig.MonitorsConfig {
	cfg := m.createFallback()
	m.metrics.Created(string(StrategyFallback), cfg != nil)
	return cfg
}

func (m *Manager) createFallback() *monitorconfig.MonitorsConfig {
	primary := m.primaryMonitor()
	if primary == nil {
		return nil
	}
	layoutMode := m.hw.DefaultLayoutMode()
	primaryLM := m.primaryLogicalMonitor(primary, 0, 0, layoutMode)
	if primaryLM == nil {
		return nil
	}
	return monitorconfig.New([]*monitorconfig.LogicalMonitorConfig{primaryLM}, layoutMode, monitorconfig.FlagNone)
}

// CreateSuggested places monitors where the hardware suggests. Monitors
// without a suggestion are left out. It returns nil when the primary monitor
// has no suggestion or two suggested regions overlap.
func (m *Manager) CreateSuggested() *monitorconfig.MonitorsConfig {
	cfg := m.createSuggested()
	m.metrics.Created(string(StrategySuggested), cfg != nil)
	return cfg
}

func (m *Manager) createSuggested() *monitorconfig.MonitorsConfig {
	primary := m.primaryMonitor()
	if primary == nil {
		return nil
	}
	x, y, ok := primary.SuggestedPosition()
	if !ok {
		return nil
	}
	layoutMode := m.hw.DefaultLayoutMode()

	primaryLM := m.primaryLogicalMonitor(primary, x, y, layoutMode)
	if primaryLM == nil {
		return nil
	}
	logicalMonitors := []*monitorconfig.LogicalMonitorConfig{primaryLM}
	region := []monitor.Rectangle{primaryLM.Layout}

	for _, mon := range m.hw.Monitors() {
		if mon == primary {
			continue
		}
		x, y, ok := mon.SuggestedPosition()
		if !ok {
			continue
		}
		lm := m.preferredLogicalMonitor(mon, x, y, primaryLM, layoutMode)
		if lm == nil {
			continue
		}
		if lm.Layout.OverlapsAny(region) {
			m.logger.Warn("Suggested monitor config has overlapping region, rejecting")
			return nil
		}
		region = append(region, lm.Layout)
		logicalMonitors = append(logicalMonitors, lm)
	}
	return monitorconfig.New(logicalMonitors, layoutMode, monitorconfig.FlagNone)
}
