package manager

import (
	"fmt"
	"slices"

	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

type assignment struct {
	hw      *monitor.Hardware
	crtcs   []*CrtcInfo
	outputs []*OutputInfo
}

// Assign maps cfg onto the hardware: every output of every configured monitor
// gets the first free CRTC it can use, in configuration order. It fails if a
// monitor is missing, lacks the configured mode or runs out of CRTCs. The
// hardware is only read.
func (m *Manager) Assign(cfg *monitorconfig.MonitorsConfig) ([]*CrtcInfo, []*OutputInfo, error) {
	a := &assignment{hw: m.hw}
	for _, lm := range cfg.LogicalMonitorConfigs {
		if err := a.assignLogicalMonitor(lm); err != nil {
			m.metrics.Assigned(err)
			return nil, nil, err
		}
	}
	m.metrics.Assigned(nil)
	return a.crtcs, a.outputs, nil
}

func (a *assignment) assignLogicalMonitor(lm *monitorconfig.LogicalMonitorConfig) error {
	for _, mc := range lm.MonitorConfigs {
		if err := a.assignMonitor(lm, mc); err != nil {
			return err
		}
	}
	return nil
}

func (a *assignment) assignMonitor(lm *monitorconfig.LogicalMonitorConfig, mc *monitorconfig.MonitorConfig) error {
	mon := a.hw.MonitorFromSpec(*mc.Spec)
	if mon == nil {
		return fmt.Errorf("ASSIGN_MONITOR: Configured monitor '%s %s' not found", mc.Spec.Vendor, mc.Spec.Product)
	}
	mode := mon.ModeFromSpec(*mc.Mode)
	if mode == nil {
		return fmt.Errorf("ASSIGN_MODE: Invalid mode %dx%d (%s) for monitor '%s %s'",
			mc.Mode.Width, mc.Mode.Height, monitor.FormatRate(mc.Mode.RefreshRate), mc.Spec.Vendor, mc.Spec.Product)
	}

	isFirstMonitor := lm.MonitorConfigs[0] == mc
	for _, crtcMode := range mode.CrtcModes {
		if crtcMode.Mode == nil {
			continue
		}
		if err := a.assignOutput(lm, mc, mon, mode, crtcMode, isFirstMonitor); err != nil {
			return err
		}
	}
	return nil
}

func (a *assignment) assignOutput(lm *monitorconfig.LogicalMonitorConfig, mc *monitorconfig.MonitorConfig, mon monitor.Monitor, mode *monitor.Mode, crtcMode monitor.CrtcModeAssignment, isFirstMonitor bool) error {
	output := crtcMode.Output
	crtc := a.unassignedCrtc(output)
	if crtc == nil {
		spec := mon.Spec()
		return fmt.Errorf("ASSIGN_NO_CRTC: %w for monitor '%s %s'", ErrNoAvailableCrtc, spec.Vendor, spec.Product)
	}

	transform := lm.Transform
	if !a.hw.IsTransformHandled(crtc, transform) {
		transform = monitor.TransformNormal
	}
	x, y := mon.CalculateCrtcPos(mode, output, transform)

	a.crtcs = append(a.crtcs, &CrtcInfo{
		Crtc:      crtc,
		Mode:      crtcMode.Mode,
		X:         x + lm.Layout.X,
		Y:         y + lm.Layout.Y,
		Transform: transform,
		Outputs:   []*monitor.Output{output},
	})
	a.outputs = append(a.outputs, &OutputInfo{
		Output:          output,
		IsPrimary:       lm.IsPrimary && isFirstMonitor && output == mon.MainOutput(),
		IsPresentation:  lm.IsPresentation,
		IsUnderscanning: mc.EnableUnderscanning,
	})
	return nil
}

// unassignedCrtc returns the first CRTC output can use that no earlier
// assignment took.
func (a *assignment) unassignedCrtc(output *monitor.Output) *monitor.Crtc {
	for _, crtc := range output.PossibleCrtcs {
		taken := slices.ContainsFunc(a.crtcs, func(info *CrtcInfo) bool {
			return info.Crtc == crtc
		})
		if !taken {
			return crtc
		}
	}
	return nil
}
