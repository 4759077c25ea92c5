package monitor

import (
	"testing"
)

func testOutput(name string, connector ConnectorType, modes ...*CrtcMode) *Output {
	out := &Output{
		Name:          name,
		Vendor:        "MFG",
		Product:       "Model " + name,
		Serial:        "SN-" + name,
		ConnectorType: connector,
		Modes:         modes,
		SuggestedX:    -1,
		SuggestedY:    -1,
	}
	if len(modes) > 0 {
		out.PreferredMode = modes[0]
	}
	return out
}

func TestRectangleOverlapAndAdjacency(t *testing.T) {
	base := Rectangle{X: 0, Y: 0, Width: 100, Height: 100}
	cases := []struct {
		name     string
		other    Rectangle
		overlaps bool
		adjacent bool
	}{
		{"right edge", Rectangle{X: 100, Y: 0, Width: 50, Height: 50}, false, true},
		{"below", Rectangle{X: 20, Y: 100, Width: 50, Height: 50}, false, true},
		{"corner only", Rectangle{X: 100, Y: 100, Width: 50, Height: 50}, false, false},
		{"gap", Rectangle{X: 101, Y: 0, Width: 50, Height: 50}, false, false},
		{"inside", Rectangle{X: 10, Y: 10, Width: 10, Height: 10}, true, false},
		{"partial", Rectangle{X: 50, Y: 50, Width: 100, Height: 100}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.other); got != tc.overlaps {
				t.Fatalf("Overlaps(%s) = %v, want %v", tc.other, got, tc.overlaps)
			}
			if got := tc.other.Overlaps(base); got != tc.overlaps {
				t.Fatalf("Overlaps is not symmetric for %s", tc.other)
			}
			if got := base.IsAdjacentTo(tc.other); got != tc.adjacent {
				t.Fatalf("IsAdjacentTo(%s) = %v, want %v", tc.other, got, tc.adjacent)
			}
		})
	}
}

func TestTransformNamesRoundTrip(t *testing.T) {
	for tr := TransformNormal; tr <= TransformFlipped270; tr++ {
		parsed, err := ParseTransform(tr.String())
		if err != nil {
			t.Fatalf("parse %s: %v", tr, err)
		}
		if parsed != tr {
			t.Fatalf("expected %s, got %s", tr, parsed)
		}
	}
	if !Transform90.IsRotated() || !TransformFlipped270.IsRotated() || Transform180.IsRotated() {
		t.Fatalf("unexpected rotation classification")
	}
	if TransformFlipped90.Rotation() != Transform90 {
		t.Fatalf("expected rotation of flipped-90 to be 90")
	}
	if _, err := ParseTransform("sideways"); err == nil {
		t.Fatalf("expected unknown transform error")
	}
}

func TestNormalMonitorModes(t *testing.T) {
	m1080 := &CrtcMode{ID: 1, Width: 1920, Height: 1080, RefreshRate: 60}
	m1080dup := &CrtcMode{ID: 2, Width: 1920, Height: 1080, RefreshRate: 60}
	m720 := &CrtcMode{ID: 3, Width: 1280, Height: 720, RefreshRate: 59.94}
	mInterlaced := &CrtcMode{ID: 4, Width: 1920, Height: 1080, RefreshRate: 60, Flags: ModeFlagInterlace}
	out := testOutput("DP-1", ConnectorDisplayPort, m1080, m1080dup, m720, mInterlaced)
	out.Crtc = &Crtc{ID: 10, CurrentMode: m720}

	m := NewNormal(out)
	if got := len(m.Modes()); got != 3 {
		t.Fatalf("expected 3 deduplicated modes, got %d", got)
	}
	if m.PreferredMode().ID != "1920x1080@60" {
		t.Fatalf("unexpected preferred mode %q", m.PreferredMode().ID)
	}
	if m.CurrentMode() == nil || m.CurrentMode().ID != "1280x720@59.94" {
		t.Fatalf("unexpected current mode %+v", m.CurrentMode())
	}
	if m.ModeFromID("1920x1080i@60") == nil {
		t.Fatalf("expected interlaced mode to be registered")
	}
	if m.ModeFromSpec(ModeSpec{Width: 1280, Height: 720, RefreshRate: 59.94}) == nil {
		t.Fatalf("expected mode lookup by spec")
	}
	want := Spec{Connector: "DP-1", Vendor: "MFG", Product: "Model DP-1", Serial: "SN-DP-1"}
	if !m.Spec().Equal(want) {
		t.Fatalf("unexpected spec %s", m.Spec())
	}
	if _, _, ok := m.SuggestedPosition(); ok {
		t.Fatalf("expected no suggested position")
	}
}

func TestNormalMonitorSuggestedPosition(t *testing.T) {
	out := testOutput("DP-1", ConnectorDisplayPort, &CrtcMode{ID: 1, Width: 800, Height: 600, RefreshRate: 60})
	out.SuggestedX = 0
	m := NewNormal(out)
	x, y, ok := m.SuggestedPosition()
	if !ok || x != 0 || y != -1 {
		t.Fatalf("expected suggested position (0,-1), got (%d,%d) ok=%v", x, y, ok)
	}
}

func tiledOutputs() (*Output, *Output) {
	tileMode := &CrtcMode{ID: 1, Width: 1920, Height: 2160, RefreshRate: 60}
	untiled := &CrtcMode{ID: 2, Width: 1920, Height: 1080, RefreshRate: 60}
	left := testOutput("DP-1", ConnectorDisplayPort, tileMode, untiled)
	left.Product = "Tiled"
	left.Serial = "T1"
	left.Tile = TileInfo{GroupID: 7, MaxHTiles: 2, MaxVTiles: 1, LocHTile: 0, TileW: 1920, TileH: 2160}
	right := testOutput("DP-2", ConnectorDisplayPort, tileMode)
	right.Product = "Tiled"
	right.Serial = "T1"
	right.Tile = TileInfo{GroupID: 7, MaxHTiles: 2, MaxVTiles: 1, LocHTile: 1, TileW: 1920, TileH: 2160}
	return left, right
}

func TestTiledMonitorModes(t *testing.T) {
	left, right := tiledOutputs()
	m := NewTiled(left, []*Output{left, right}, nil)

	if m.MainOutput() != left {
		t.Fatalf("expected the tile with untiled modes to be main output")
	}
	if got := len(m.Modes()); got != 2 {
		t.Fatalf("expected tiled and untiled mode, got %d", got)
	}
	preferred := m.PreferredMode()
	if preferred == nil || preferred.ID != "3840x2160@60" {
		t.Fatalf("expected tiled preferred mode, got %+v", preferred)
	}
	if len(preferred.CrtcModes) != 2 || preferred.CrtcModes[1].Mode == nil {
		t.Fatalf("expected both tiles driven in tiled mode")
	}
	untiled := m.ModeFromID("1920x1080@60")
	if untiled == nil {
		t.Fatalf("expected untiled mode")
	}
	if untiled.CrtcModes[1].Mode != nil {
		t.Fatalf("expected second tile to be disabled in untiled mode")
	}
}

func TestTiledMonitorCrtcPositions(t *testing.T) {
	left, right := tiledOutputs()
	m := NewTiled(left, []*Output{left, right}, nil)
	mode := m.PreferredMode()

	cases := []struct {
		transform Transform
		output    *Output
		x, y      int
	}{
		{TransformNormal, left, 0, 0},
		{TransformNormal, right, 1920, 0},
		{Transform180, left, 1920, 0},
		{Transform180, right, 0, 0},
		{Transform90, left, 0, 1920},
		{Transform90, right, 0, 0},
		{Transform270, left, 0, 0},
		{Transform270, right, 0, 1920},
	}
	for _, tc := range cases {
		x, y := m.CalculateCrtcPos(mode, tc.output, tc.transform)
		if x != tc.x || y != tc.y {
			t.Fatalf("%s %s: expected (%d,%d), got (%d,%d)", tc.transform, tc.output.Name, tc.x, tc.y, x, y)
		}
	}

	untiled := m.ModeFromID("1920x1080@60")
	if x, y := m.CalculateCrtcPos(untiled, right, TransformNormal); x != 0 || y != 0 {
		t.Fatalf("untiled modes must not offset outputs, got (%d,%d)", x, y)
	}
}

func TestHardwareGroupsTiles(t *testing.T) {
	left, right := tiledOutputs()
	panel := testOutput("eDP-1", ConnectorEDP, &CrtcMode{ID: 5, Width: 1366, Height: 768, RefreshRate: 60})
	hw := &Hardware{Outputs: []*Output{panel, right, left}}

	monitors := hw.Monitors()
	if len(monitors) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(monitors))
	}
	if _, ok := monitors[1].(*TiledMonitor); !ok {
		t.Fatalf("expected second monitor to be tiled, got %T", monitors[1])
	}
	if hw.LaptopPanel() != monitors[0] {
		t.Fatalf("expected eDP-1 as laptop panel")
	}
	if hw.MonitorFromSpec(monitors[1].Spec()) != monitors[1] {
		t.Fatalf("expected lookup by spec")
	}
	if hw.DefaultLayoutMode() != LayoutModePhysical {
		t.Fatalf("expected physical default layout mode")
	}
	if !hw.IsScaleSupported(LayoutModePhysical, 2) || hw.IsScaleSupported(LayoutModePhysical, 1.5) {
		t.Fatalf("unexpected default supported scales")
	}
}

func TestCalculateModeScale(t *testing.T) {
	cases := []struct {
		name      string
		connector ConnectorType
		width     int
		height    int
		widthMM   int
		heightMM  int
		want      float64
	}{
		{"low resolution", ConnectorDisplayPort, 1920, 1080, 100, 60, 1},
		{"hidpi panel", ConnectorEDP, 3840, 2160, 310, 174, 2},
		{"hdmi below 4k", ConnectorHDMIA, 2560, 1440, 100, 60, 1},
		{"hdmi 4k small", ConnectorHDMIA, 3840, 2160, 310, 174, 2},
		{"aspect encoded size", ConnectorDisplayPort, 3840, 2160, 160, 90, 1},
		{"unknown size", ConnectorDisplayPort, 3840, 2160, 0, 0, 1},
		{"large 4k", ConnectorDisplayPort, 3840, 2160, 600, 340, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := testOutput("X-1", tc.connector, &CrtcMode{ID: 1, Width: tc.width, Height: tc.height, RefreshRate: 60})
			out.WidthMM = tc.widthMM
			out.HeightMM = tc.heightMM
			hw := &Hardware{Outputs: []*Output{out}}
			m := hw.Monitors()[0]
			if got := hw.CalculateModeScale(m, m.PreferredMode()); got != tc.want {
				t.Fatalf("expected scale %g, got %g", tc.want, got)
			}
		})
	}

	out := testOutput("X-1", ConnectorDisplayPort, &CrtcMode{ID: 1, Width: 800, Height: 600, RefreshRate: 60})
	hw := &Hardware{Outputs: []*Output{out}, GlobalScalingFactor: 3}
	m := hw.Monitors()[0]
	if got := hw.CalculateModeScale(m, m.PreferredMode()); got != 3 {
		t.Fatalf("expected global scaling factor to win, got %g", got)
	}
}
