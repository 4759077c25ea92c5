package monitor

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the on-disk form of Hardware.
type Snapshot struct {
	LidClosed           bool                     `yaml:"lid_closed"`
	GlobalScaleRequired bool                     `yaml:"global_scale_required"`
	DefaultLayoutMode   LayoutMode               `yaml:"default_layout_mode,omitempty"`
	SupportedScales     map[LayoutMode][]float64 `yaml:"supported_scales,omitempty"`
	GlobalScalingFactor int                      `yaml:"global_scaling_factor,omitempty"`
	Modes               []SnapshotMode           `yaml:"modes"`
	Crtcs               []SnapshotCrtc           `yaml:"crtcs"`
	Outputs             []SnapshotOutput         `yaml:"outputs"`
}

type SnapshotMode struct {
	ID          int64   `yaml:"id"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	RefreshRate float64 `yaml:"refresh_rate"`
	Interlaced  bool    `yaml:"interlaced,omitempty"`
}

type SnapshotCrtc struct {
	ID          int64       `yaml:"id"`
	Transforms  []Transform `yaml:"transforms,omitempty"`
	CurrentMode int64       `yaml:"current_mode,omitempty"`
}

type SnapshotTile struct {
	GroupID   uint32 `yaml:"group_id"`
	MaxHTiles uint32 `yaml:"max_h_tiles"`
	MaxVTiles uint32 `yaml:"max_v_tiles"`
	LocHTile  uint32 `yaml:"loc_h_tile"`
	LocVTile  uint32 `yaml:"loc_v_tile"`
	TileW     uint32 `yaml:"tile_w"`
	TileH     uint32 `yaml:"tile_h"`
}

type SnapshotOutput struct {
	ID                    int64         `yaml:"id"`
	Name                  string        `yaml:"name"`
	Vendor                string        `yaml:"vendor"`
	Product               string        `yaml:"product"`
	Serial                string        `yaml:"serial"`
	ConnectorType         ConnectorType `yaml:"connector_type,omitempty"`
	WidthMM               int           `yaml:"width_mm,omitempty"`
	HeightMM              int           `yaml:"height_mm,omitempty"`
	Modes                 []int64       `yaml:"modes"`
	PreferredMode         int64         `yaml:"preferred_mode,omitempty"`
	PossibleCrtcs         []int64       `yaml:"possible_crtcs"`
	Crtc                  int64         `yaml:"crtc,omitempty"`
	IsPrimary             bool          `yaml:"is_primary,omitempty"`
	IsPresentation        bool          `yaml:"is_presentation,omitempty"`
	IsUnderscanning       bool          `yaml:"is_underscanning,omitempty"`
	SupportsUnderscanning bool          `yaml:"supports_underscanning,omitempty"`

	// Missing coordinates mean no suggested position.
	SuggestedX *int          `yaml:"suggested_x,omitempty"`
	SuggestedY *int          `yaml:"suggested_y,omitempty"`
	Tile       *SnapshotTile `yaml:"tile,omitempty"`
}

// LoadSnapshot reads a hardware snapshot file.
func LoadSnapshot(path string, logger *slog.Logger) (*Hardware, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("HW_SNAPSHOT_READ: %w", err)
	}
	return ParseSnapshot(data, logger)
}

// ParseSnapshot decodes a YAML snapshot and resolves its mode and CRTC ids.
func ParseSnapshot(data []byte, logger *slog.Logger) (*Hardware, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("HW_SNAPSHOT_PARSE: %w", err)
	}
	return snap.Hardware(logger)
}

// Hardware resolves the snapshot references into a Hardware value.
func (s *Snapshot) Hardware(logger *slog.Logger) (*Hardware, error) {
	hw := &Hardware{
		LidClosed:           s.LidClosed,
		LayoutMode:          s.DefaultLayoutMode,
		SupportedScales:     s.SupportedScales,
		GlobalScalingFactor: s.GlobalScalingFactor,
		Logger:              logger,
	}
	if s.GlobalScaleRequired {
		hw.Capabilities |= CapabilityGlobalScaleRequired
	}

	modes := make(map[int64]*CrtcMode, len(s.Modes))
	for _, sm := range s.Modes {
		if _, dup := modes[sm.ID]; dup {
			return nil, fmt.Errorf("HW_SNAPSHOT_REF: duplicate mode id %d", sm.ID)
		}
		mode := &CrtcMode{ID: sm.ID, Width: sm.Width, Height: sm.Height, RefreshRate: sm.RefreshRate}
		if sm.Interlaced {
			mode.Flags |= ModeFlagInterlace
		}
		modes[sm.ID] = mode
		hw.CrtcModes = append(hw.CrtcModes, mode)
	}
	lookupMode := func(id int64) (*CrtcMode, error) {
		if id == 0 {
			return nil, nil
		}
		mode, ok := modes[id]
		if !ok {
			return nil, fmt.Errorf("HW_SNAPSHOT_REF: unknown mode id %d", id)
		}
		return mode, nil
	}

	crtcs := make(map[int64]*Crtc, len(s.Crtcs))
	for _, sc := range s.Crtcs {
		if _, dup := crtcs[sc.ID]; dup {
			return nil, fmt.Errorf("HW_SNAPSHOT_REF: duplicate crtc id %d", sc.ID)
		}
		current, err := lookupMode(sc.CurrentMode)
		if err != nil {
			return nil, err
		}
		crtc := &Crtc{ID: sc.ID, CurrentMode: current}
		for _, t := range sc.Transforms {
			crtc.AllTransforms |= 1 << uint(t)
		}
		if len(sc.Transforms) == 0 {
			crtc.AllTransforms = 1 << uint(TransformNormal)
		}
		crtcs[sc.ID] = crtc
		hw.Crtcs = append(hw.Crtcs, crtc)
	}
	lookupCrtc := func(id int64) (*Crtc, error) {
		crtc, ok := crtcs[id]
		if !ok {
			return nil, fmt.Errorf("HW_SNAPSHOT_REF: unknown crtc id %d", id)
		}
		return crtc, nil
	}

	for _, so := range s.Outputs {
		output := &Output{
			ID:                    so.ID,
			Name:                  so.Name,
			Vendor:                so.Vendor,
			Product:               so.Product,
			Serial:                so.Serial,
			ConnectorType:         so.ConnectorType,
			WidthMM:               so.WidthMM,
			HeightMM:              so.HeightMM,
			IsPrimary:             so.IsPrimary,
			IsPresentation:        so.IsPresentation,
			IsUnderscanning:       so.IsUnderscanning,
			SupportsUnderscanning: so.SupportsUnderscanning,
			SuggestedX:            -1,
			SuggestedY:            -1,
		}
		if output.ConnectorType == "" {
			output.ConnectorType = ConnectorUnknown
		}
		if so.SuggestedX != nil {
			output.SuggestedX = *so.SuggestedX
		}
		if so.SuggestedY != nil {
			output.SuggestedY = *so.SuggestedY
		}
		if so.Tile != nil {
			output.Tile = TileInfo(*so.Tile)
		}
		for _, id := range so.Modes {
			mode, err := lookupMode(id)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", so.Name, err)
			}
			if mode != nil {
				output.Modes = append(output.Modes, mode)
			}
		}
		preferred, err := lookupMode(so.PreferredMode)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", so.Name, err)
		}
		output.PreferredMode = preferred
		for _, id := range so.PossibleCrtcs {
			crtc, err := lookupCrtc(id)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", so.Name, err)
			}
			output.PossibleCrtcs = append(output.PossibleCrtcs, crtc)
		}
		if so.Crtc != 0 {
			crtc, err := lookupCrtc(so.Crtc)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", so.Name, err)
			}
			output.Crtc = crtc
		}
		hw.Outputs = append(hw.Outputs, output)
	}
	return hw, nil
}
