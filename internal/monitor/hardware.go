package monitor

import (
	"log/slog"
	"sync"
)

// Capability flags advertised by the display backend.
type Capability uint32

const (
	CapabilityMirroring Capability = 1 << iota
	CapabilityLayoutMode
	CapabilityGlobalScaleRequired
)

const (
	hidpiLimit      = 192
	hidpiMinHeight  = 1200
	smallest4KWidth = 3656
)

// DefaultSupportedScales is used for a layout mode with no configured scales.
var DefaultSupportedScales = []float64{1, 2}

// Hardware is a read-only snapshot of the display hardware: outputs, CRTCs,
// modes and the backend facts needed to configure them.
type Hardware struct {
	CrtcModes []*CrtcMode
	Crtcs     []*Crtc
	Outputs   []*Output

	LidClosed    bool
	Capabilities Capability
	LayoutMode   LayoutMode
	// SupportedScales lists valid logical monitor scales per layout mode.
	SupportedScales map[LayoutMode][]float64
	// GlobalScalingFactor overrides the computed monitor scale when positive.
	GlobalScalingFactor int

	Logger *slog.Logger

	once     sync.Once
	monitors []Monitor
}

// Monitors groups outputs into monitors in detection order. Outputs sharing
// a tile group form one tiled monitor, anchored at the (0, 0) tile.
func (h *Hardware) Monitors() []Monitor {
	h.once.Do(h.buildMonitors)
	return h.monitors
}

func (h *Hardware) buildMonitors() {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, output := range h.Outputs {
		if !output.isTiled() {
			h.monitors = append(h.monitors, NewNormal(output))
			continue
		}
		if output.Tile.LocHTile != 0 || output.Tile.LocVTile != 0 {
			continue
		}
		var group []*Output
		for _, other := range h.Outputs {
			if other.Tile.GroupID == output.Tile.GroupID {
				group = append(group, other)
			}
		}
		h.monitors = append(h.monitors, NewTiled(output, group, logger))
	}
}

func (h *Hardware) MonitorFromSpec(spec Spec) Monitor {
	for _, m := range h.Monitors() {
		if m.Spec().Equal(spec) {
			return m
		}
	}
	return nil
}

// PrimaryMonitor returns the monitor the system reports as primary.
func (h *Hardware) PrimaryMonitor() Monitor {
	for _, m := range h.Monitors() {
		if m.IsPrimary() {
			return m
		}
	}
	return nil
}

func (h *Hardware) LaptopPanel() Monitor {
	for _, m := range h.Monitors() {
		if m.IsLaptopPanel() {
			return m
		}
	}
	return nil
}

func (h *Hardware) IsLidClosed() bool {
	return h.LidClosed
}

func (h *Hardware) GlobalScaleRequired() bool {
	return h.Capabilities&CapabilityGlobalScaleRequired != 0
}

func (h *Hardware) DefaultLayoutMode() LayoutMode {
	if h.LayoutMode == 0 {
		return LayoutModePhysical
	}
	return h.LayoutMode
}

func (h *Hardware) SupportedScalesFor(mode LayoutMode) []float64 {
	if scales, ok := h.SupportedScales[mode]; ok && len(scales) > 0 {
		return scales
	}
	return DefaultSupportedScales
}

func (h *Hardware) IsScaleSupported(mode LayoutMode, scale float64) bool {
	for _, s := range h.SupportedScalesFor(mode) {
		if s == scale {
			return true
		}
	}
	return false
}

func (h *Hardware) IsTransformHandled(crtc *Crtc, transform Transform) bool {
	return crtc.HandlesTransform(transform)
}

// CalculateModeScale returns the scale a logical monitor showing monitor in
// mode should get.
func (h *Hardware) CalculateModeScale(m Monitor, mode *Mode) float64 {
	if h.GlobalScalingFactor > 0 {
		return float64(h.GlobalScalingFactor)
	}
	return calculateScale(m, mode)
}

func calculateScale(m Monitor, mode *Mode) float64 {
	width, height := mode.Resolution()
	if height < hidpiMinHeight {
		return 1
	}
	switch m.ConnectorType() {
	case ConnectorHDMIA, ConnectorHDMIB:
		if width < smallest4KWidth {
			return 1
		}
	}

	widthMM, heightMM := m.PhysicalDimensions()
	// Some EDIDs encode the aspect ratio instead of the size.
	if (widthMM == 160 && heightMM == 90) ||
		(widthMM == 160 && heightMM == 100) ||
		(widthMM == 16 && heightMM == 9) ||
		(widthMM == 16 && heightMM == 10) {
		return 1
	}
	if widthMM <= 0 || heightMM <= 0 {
		return 1
	}
	dpiX := float64(width) / (float64(widthMM) / 25.4)
	dpiY := float64(height) / (float64(heightMM) / 25.4)
	if dpiX > hidpiLimit && dpiY > hidpiLimit {
		return 2
	}
	return 1
}
