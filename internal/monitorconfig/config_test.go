package monitorconfig

import (
	"errors"
	"strings"
	"testing"

	"monitorcfg/internal/monitor"
)

type fakeCaps struct {
	globalScale bool
	scales      []float64
}

func (f fakeCaps) GlobalScaleRequired() bool { return f.globalScale }

func (f fakeCaps) IsScaleSupported(_ monitor.LayoutMode, scale float64) bool {
	scales := f.scales
	if len(scales) == 0 {
		scales = []float64{1, 2}
	}
	for _, s := range scales {
		if s == scale {
			return true
		}
	}
	return false
}

func spec(connector string) *monitor.Spec {
	return &monitor.Spec{Connector: connector, Vendor: "MFG", Product: "P-" + connector, Serial: "S-" + connector}
}

func logical(connector string, x, y, w, h int, primary bool) *LogicalMonitorConfig {
	return &LogicalMonitorConfig{
		Layout:    monitor.Rectangle{X: x, Y: y, Width: w, Height: h},
		Scale:     1,
		IsPrimary: primary,
		MonitorConfigs: []*MonitorConfig{{
			Spec: spec(connector),
			Mode: &monitor.ModeSpec{Width: w, Height: h, RefreshRate: 60},
		}},
	}
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := New([]*LogicalMonitorConfig{
		logical("DP-1", 0, 0, 1920, 1080, true),
		logical("DP-2", 1920, 0, 1920, 1080, false),
	}, monitor.LayoutModePhysical, FlagNone)
	b := New([]*LogicalMonitorConfig{
		logical("DP-2", 0, 0, 1920, 1080, true),
		logical("DP-1", 0, 1080, 1920, 1080, false),
	}, monitor.LayoutModePhysical, FlagNone)

	if !a.Key.Equal(b.Key) {
		t.Fatalf("expected equal keys, got %s and %s", a.Key, b.Key)
	}
	if a.Key.Hash() != b.Key.Hash() {
		t.Fatalf("equal keys must hash equally")
	}
	if a.Key.ID() != b.Key.ID() {
		t.Fatalf("equal keys must share an id")
	}
	if a.Key.Specs[0].Connector != "DP-1" {
		t.Fatalf("expected sorted specs, got %s", a.Key)
	}

	c := New([]*LogicalMonitorConfig{logical("DP-1", 0, 0, 1920, 1080, true)}, monitor.LayoutModePhysical, FlagNone)
	if a.Key.Equal(c.Key) || a.Key.ID() == c.Key.ID() {
		t.Fatalf("expected different keys for different monitor sets")
	}
}

func TestKeyIDIsInjective(t *testing.T) {
	a := NewKey([]monitor.Spec{{Connector: "a:b", Vendor: "c", Product: "p", Serial: "s"}})
	b := NewKey([]monitor.Spec{{Connector: "a", Vendor: "b:c", Product: "p", Serial: "s"}})
	if a.String() != b.String() {
		t.Fatalf("test precondition: display forms should collide")
	}
	if a.ID() == b.ID() {
		t.Fatalf("ids must differ for different keys")
	}
}

func TestNewKeyEmpty(t *testing.T) {
	if !NewKey(nil).IsEmpty() {
		t.Fatalf("expected empty key")
	}
}

func TestVerifyAcceptsHorizontalPair(t *testing.T) {
	cfg := New([]*LogicalMonitorConfig{
		logical("DP-1", 0, 0, 1920, 1080, true),
		logical("DP-2", 1920, 0, 1280, 1024, false),
	}, monitor.LayoutModePhysical, FlagNone)
	if err := Verify(cfg, fakeCaps{}); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	cases := []struct {
		name   string
		build  func() *MonitorsConfig
		caps   fakeCaps
		expect string
	}{
		{
			name:   "empty",
			build:  func() *MonitorsConfig { return New(nil, monitor.LayoutModePhysical, FlagNone) },
			expect: "Monitors config incomplete",
		},
		{
			name: "overlap",
			build: func() *MonitorsConfig {
				return New([]*LogicalMonitorConfig{
					logical("DP-1", 0, 0, 1920, 1080, true),
					logical("DP-2", 1000, 0, 1920, 1080, false),
				}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "Logical monitors overlap",
		},
		{
			name: "two primaries",
			build: func() *MonitorsConfig {
				return New([]*LogicalMonitorConfig{
					logical("DP-1", 0, 0, 1920, 1080, true),
					logical("DP-2", 1920, 0, 1920, 1080, true),
				}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "multiple primary",
		},
		{
			name: "no primary",
			build: func() *MonitorsConfig {
				return New([]*LogicalMonitorConfig{logical("DP-1", 0, 0, 1920, 1080, false)}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "missing primary",
		},
		{
			name: "gap",
			build: func() *MonitorsConfig {
				return New([]*LogicalMonitorConfig{
					logical("DP-1", 0, 0, 1920, 1080, true),
					logical("DP-2", 2000, 0, 1920, 1080, false),
				}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "not adjacent",
		},
		{
			name: "offset",
			build: func() *MonitorsConfig {
				return New([]*LogicalMonitorConfig{logical("DP-1", 10, 0, 1920, 1080, true)}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "positions are offset",
		},
		{
			name: "negative position",
			build: func() *MonitorsConfig {
				return New([]*LogicalMonitorConfig{logical("DP-1", -1, 0, 1920, 1080, true)}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "Invalid logical monitor position (-1, 0)",
		},
		{
			name: "unsupported scale",
			build: func() *MonitorsConfig {
				lm := logical("DP-1", 0, 0, 1920, 1080, true)
				lm.Scale = 1.5
				return New([]*LogicalMonitorConfig{lm}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "Invalid logical monitor config scale 1.5",
		},
		{
			name: "mode conflict",
			build: func() *MonitorsConfig {
				lm := logical("DP-1", 0, 0, 1920, 1080, true)
				lm.MonitorConfigs = append(lm.MonitorConfigs, &MonitorConfig{
					Spec: spec("DP-2"),
					Mode: &monitor.ModeSpec{Width: 1280, Height: 1024, RefreshRate: 60},
				})
				return New([]*LogicalMonitorConfig{lm}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "Monitor modes in logical monitor conflict",
		},
		{
			name: "empty logical monitor",
			build: func() *MonitorsConfig {
				lm := logical("DP-1", 0, 0, 1920, 1080, true)
				lm.MonitorConfigs = nil
				return New([]*LogicalMonitorConfig{lm}, monitor.LayoutModePhysical, FlagNone)
			},
			expect: "Logical monitor is empty",
		},
		{
			name: "mixed scales",
			build: func() *MonitorsConfig {
				second := logical("DP-2", 1920, 0, 960, 540, false)
				second.Scale = 2
				second.MonitorConfigs[0].Mode = &monitor.ModeSpec{Width: 1920, Height: 1080, RefreshRate: 60}
				return New([]*LogicalMonitorConfig{logical("DP-1", 0, 0, 1920, 1080, true), second}, monitor.LayoutModeLogical, FlagNone)
			},
			caps:   fakeCaps{globalScale: true},
			expect: "scales must be identical",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(tc.build(), tc.caps)
			if err == nil {
				t.Fatalf("expected rejection containing %q", tc.expect)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.expect) {
				t.Fatalf("expected %q in %v", tc.expect, err)
			}
		})
	}
}

func TestVerifyRotatedAndScaledLayout(t *testing.T) {
	lm := logical("DP-1", 0, 0, 540, 960, true)
	lm.Transform = monitor.Transform90
	lm.Scale = 2
	lm.MonitorConfigs[0].Mode = &monitor.ModeSpec{Width: 1920, Height: 1080, RefreshRate: 60}
	cfg := New([]*LogicalMonitorConfig{lm}, monitor.LayoutModeLogical, FlagNone)
	if err := Verify(cfg, fakeCaps{}); err != nil {
		t.Fatalf("expected rotated scaled layout to verify: %v", err)
	}
}

// Neighbour comparison must agree with comparing every pair of scales.
func TestGlobalScaleNeighbourCheckMatchesAllPairs(t *testing.T) {
	scaleSets := [][]float64{
		{1, 1, 1},
		{1, 2, 1},
		{2, 2, 1},
		{1, 1, 2},
		{2, 2, 2},
	}
	for _, scales := range scaleSets {
		allEqual := true
		for _, s := range scales {
			if s != scales[0] {
				allEqual = false
			}
		}

		var lms []*LogicalMonitorConfig
		x := 0
		for i, s := range scales {
			lm := logical([]string{"DP-1", "DP-2", "DP-3"}[i], x, 0, 800, 600, i == 0)
			lm.Scale = s
			lm.MonitorConfigs[0].Mode = &monitor.ModeSpec{Width: int(800 * s), Height: int(600 * s), RefreshRate: 60}
			lms = append(lms, lm)
			x += 800
		}
		cfg := New(lms, monitor.LayoutModeLogical, FlagNone)
		err := Verify(cfg, fakeCaps{globalScale: true})
		if allEqual && err != nil {
			t.Fatalf("scales %v: unexpected error %v", scales, err)
		}
		if !allEqual && (err == nil || !strings.Contains(err.Error(), "scales must be identical")) {
			t.Fatalf("scales %v: expected scale mismatch, got %v", scales, err)
		}
	}
}

func TestVerifyLeafChecks(t *testing.T) {
	if err := VerifyModeSpec(&monitor.ModeSpec{Width: 1, Height: 1, RefreshRate: 0}); err == nil || !strings.Contains(err.Error(), "VERIFY_MODE") {
		t.Fatalf("expected mode error, got %v", err)
	}
	if err := VerifyMonitorSpec(&monitor.Spec{Connector: "DP-1", Vendor: "MFG", Product: "P"}); err == nil || !strings.Contains(err.Error(), "Monitor spec incomplete") {
		t.Fatalf("expected spec error, got %v", err)
	}
	if err := VerifyMonitorConfig(&MonitorConfig{Spec: spec("DP-1")}); err == nil || !strings.Contains(err.Error(), "Monitor config incomplete") {
		t.Fatalf("expected monitor config error, got %v", err)
	}
}
