package monitorconfig

import (
	"errors"
	"fmt"

	"monitorcfg/internal/monitor"
)

// ErrInvalid is wrapped by every verification failure.
var ErrInvalid = errors.New("invalid monitor configuration")

// Capabilities are the hardware facts verification depends on.
type Capabilities interface {
	GlobalScaleRequired() bool
	IsScaleSupported(mode monitor.LayoutMode, scale float64) bool
}

func invalid(code, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", code, ErrInvalid, fmt.Sprintf(format, args...))
}

func VerifyModeSpec(mode *monitor.ModeSpec) error {
	if mode != nil && mode.Width > 0 && mode.Height > 0 && mode.RefreshRate > 0 {
		return nil
	}
	return invalid("VERIFY_MODE", "Monitor mode invalid")
}

func VerifyMonitorSpec(spec *monitor.Spec) error {
	if spec != nil && spec.Connector != "" && spec.Vendor != "" && spec.Product != "" && spec.Serial != "" {
		return nil
	}
	return invalid("VERIFY_SPEC", "Monitor spec incomplete")
}

func VerifyMonitorConfig(mc *MonitorConfig) error {
	if mc != nil && mc.Spec != nil && mc.Mode != nil {
		return nil
	}
	return invalid("VERIFY_MONITOR", "Monitor config incomplete")
}

// ExpectedModeSize is the monitor mode size a logical monitor layout implies.
func ExpectedModeSize(lm *LogicalMonitorConfig, layoutMode monitor.LayoutMode) (int, int) {
	width, height := lm.Layout.Width, lm.Layout.Height
	if lm.Transform.IsRotated() {
		width, height = height, width
	}
	if layoutMode == monitor.LayoutModeLogical {
		width = int(float64(width) * lm.Scale)
		height = int(float64(height) * lm.Scale)
	}
	return width, height
}

func VerifyLogicalMonitorConfig(lm *LogicalMonitorConfig, layoutMode monitor.LayoutMode, caps Capabilities) error {
	if !caps.IsScaleSupported(layoutMode, lm.Scale) {
		return invalid("VERIFY_LOGICAL", "Invalid logical monitor config scale %g", lm.Scale)
	}
	if lm.Layout.X < 0 || lm.Layout.Y < 0 {
		return invalid("VERIFY_LOGICAL", "Invalid logical monitor position (%d, %d)", lm.Layout.X, lm.Layout.Y)
	}
	if len(lm.MonitorConfigs) == 0 {
		return invalid("VERIFY_LOGICAL", "Logical monitor is empty")
	}
	width, height := ExpectedModeSize(lm, layoutMode)
	for _, mc := range lm.MonitorConfigs {
		if err := VerifyMonitorConfig(mc); err != nil {
			return err
		}
		if mc.Mode.Width != width || mc.Mode.Height != height {
			return invalid("VERIFY_LOGICAL", "Monitor modes in logical monitor conflict")
		}
	}
	return nil
}

func hasAdjacentNeighbour(cfg *MonitorsConfig, lm *LogicalMonitorConfig) bool {
	if len(cfg.LogicalMonitorConfigs) == 1 {
		return true
	}
	for _, other := range cfg.LogicalMonitorConfigs {
		if other == lm {
			continue
		}
		if lm.Layout.IsAdjacentTo(other.Layout) {
			return true
		}
	}
	return false
}

// VerifyMonitorsConfig checks the arrangement as a whole. Logical monitors
// are assumed to have passed VerifyLogicalMonitorConfig already.
func VerifyMonitorsConfig(cfg *MonitorsConfig, caps Capabilities) error {
	if cfg == nil || len(cfg.LogicalMonitorConfigs) == 0 {
		return invalid("VERIFY_CONFIG", "Monitors config incomplete")
	}

	globalScaleRequired := caps.GlobalScaleRequired()
	minX, minY := 0, 0
	hasPrimary := false
	var region []monitor.Rectangle
	for i, lm := range cfg.LogicalMonitorConfigs {
		if globalScaleRequired && i > 0 && cfg.LogicalMonitorConfigs[i-1].Scale != lm.Scale {
			return invalid("VERIFY_CONFIG", "Logical monitor scales must be identical")
		}
		if lm.Layout.OverlapsAny(region) {
			return invalid("VERIFY_CONFIG", "Logical monitors overlap")
		}
		if lm.IsPrimary {
			if hasPrimary {
				return invalid("VERIFY_CONFIG", "Config contains multiple primary logical monitors")
			}
			hasPrimary = true
		}
		if !hasAdjacentNeighbour(cfg, lm) {
			return invalid("VERIFY_CONFIG", "Logical monitors not adjacent")
		}
		if i == 0 || lm.Layout.X < minX {
			minX = lm.Layout.X
		}
		if i == 0 || lm.Layout.Y < minY {
			minY = lm.Layout.Y
		}
		region = append(region, lm.Layout)
	}

	if minX != 0 || minY != 0 {
		return invalid("VERIFY_CONFIG", "Logical monitors positions are offset")
	}
	if !hasPrimary {
		return invalid("VERIFY_CONFIG", "Config is missing primary logical")
	}
	return nil
}

// Verify runs the logical monitor checks for every logical monitor and then
// the whole-config checks.
func Verify(cfg *MonitorsConfig, caps Capabilities) error {
	if cfg == nil {
		return invalid("VERIFY_CONFIG", "Monitors config incomplete")
	}
	for _, lm := range cfg.LogicalMonitorConfigs {
		if err := VerifyLogicalMonitorConfig(lm, cfg.LayoutMode, caps); err != nil {
			return err
		}
	}
	return VerifyMonitorsConfig(cfg, caps)
}
