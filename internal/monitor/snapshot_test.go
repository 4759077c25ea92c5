package monitor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const laptopSnapshot = `
lid_closed: true
global_scale_required: true
default_layout_mode: logical
supported_scales:
  logical: [1, 1.5, 2]
modes:
  - {id: 1, width: 1920, height: 1080, refresh_rate: 60}
  - {id: 2, width: 1280, height: 720, refresh_rate: 59.94, interlaced: true}
crtcs:
  - {id: 10, transforms: [normal, 90, flipped], current_mode: 1}
  - {id: 11}
outputs:
  - id: 20
    name: eDP-1
    vendor: LEN
    product: Panel
    serial: "0001"
    connector_type: eDP
    width_mm: 310
    height_mm: 174
    modes: [1, 2]
    preferred_mode: 1
    possible_crtcs: [10, 11]
    crtc: 10
    is_primary: true
    suggested_x: 0
    suggested_y: 0
  - id: 21
    name: DP-1
    vendor: DEL
    product: U2415
    serial: ABC
    connector_type: DisplayPort
    modes: [1]
    preferred_mode: 1
    possible_crtcs: [11]
`

func TestParseSnapshot(t *testing.T) {
	hw, err := ParseSnapshot([]byte(laptopSnapshot), nil)
	if err != nil {
		t.Fatalf("parse snapshot failed: %v", err)
	}
	if !hw.IsLidClosed() || !hw.GlobalScaleRequired() {
		t.Fatalf("expected lid closed and global scale required")
	}
	if hw.DefaultLayoutMode() != LayoutModeLogical {
		t.Fatalf("expected logical layout mode, got %s", hw.DefaultLayoutMode())
	}
	if !hw.IsScaleSupported(LayoutModeLogical, 1.5) {
		t.Fatalf("expected 1.5 supported in logical mode")
	}
	if hw.IsScaleSupported(LayoutModePhysical, 1.5) {
		t.Fatalf("physical mode should fall back to default scales")
	}

	crtc := hw.Crtcs[0]
	if !hw.IsTransformHandled(crtc, Transform90) || !hw.IsTransformHandled(crtc, TransformFlipped) {
		t.Fatalf("expected listed transforms to be handled")
	}
	if hw.IsTransformHandled(crtc, Transform180) {
		t.Fatalf("180 was not listed")
	}
	if !hw.IsTransformHandled(hw.Crtcs[1], TransformNormal) {
		t.Fatalf("a crtc without transforms must handle normal")
	}

	panel := hw.Outputs[0]
	if panel.Crtc != crtc || panel.Crtc.CurrentMode != hw.CrtcModes[0] {
		t.Fatalf("crtc references not resolved")
	}
	if hw.CrtcModes[1].Flags&ModeFlagInterlace == 0 {
		t.Fatalf("expected interlace flag")
	}
	ext := hw.Outputs[1]
	if ext.SuggestedX != -1 || ext.SuggestedY != -1 {
		t.Fatalf("missing suggested position should be -1, got (%d,%d)", ext.SuggestedX, ext.SuggestedY)
	}
	if ext.Crtc != nil {
		t.Fatalf("expected unassigned output")
	}

	monitors := hw.Monitors()
	if len(monitors) != 2 {
		t.Fatalf("expected 2 monitors, got %d", len(monitors))
	}
	if hw.PrimaryMonitor() != monitors[0] || !monitors[0].IsLaptopPanel() {
		t.Fatalf("expected the panel to be primary")
	}
	if monitors[0].CurrentMode() == nil {
		t.Fatalf("expected panel current mode")
	}
}

func TestParseSnapshotRejectsUnknownReferences(t *testing.T) {
	cases := map[string]string{
		"mode": "modes: []\ncrtcs: []\noutputs:\n  - {id: 1, name: DP-1, modes: [3], possible_crtcs: []}\n",
		"crtc": "modes: []\ncrtcs: []\noutputs:\n  - {id: 1, name: DP-1, modes: [], possible_crtcs: [9]}\n",
		"dup":  "modes:\n  - {id: 1, width: 1, height: 1, refresh_rate: 1}\n  - {id: 1, width: 2, height: 2, refresh_rate: 1}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSnapshot([]byte(doc), nil)
			if err == nil || !strings.Contains(err.Error(), "HW_SNAPSHOT_REF") {
				t.Fatalf("expected HW_SNAPSHOT_REF error, got %v", err)
			}
		})
	}
}

func TestParseSnapshotRejectsBadTransform(t *testing.T) {
	_, err := ParseSnapshot([]byte("crtcs:\n  - {id: 1, transforms: [sideways]}\n"), nil)
	if err == nil || !strings.Contains(err.Error(), "HW_SNAPSHOT_PARSE") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil || !strings.Contains(err.Error(), "HW_SNAPSHOT_READ") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadSnapshotFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hardware.yaml")
	if err := os.WriteFile(path, []byte(laptopSnapshot), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	hw, err := LoadSnapshot(path, nil)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(hw.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(hw.Outputs))
	}
}
