package monitor

import "log/slog"

// CrtcModeAssignment binds one output of a monitor to the CRTC mode it needs
// for a given monitor mode. Mode is nil when the output stays disabled.
type CrtcModeAssignment struct {
	Output *Output
	Mode   *CrtcMode
}

// Mode is a monitor level mode, backed by one CRTC mode per output.
type Mode struct {
	ID        string
	Spec      ModeSpec
	CrtcModes []CrtcModeAssignment

	tiled bool
}

func (m *Mode) Resolution() (int, int) {
	return m.Spec.Width, m.Spec.Height
}

// Monitor is a physical display. Implementations are *NormalMonitor and *TiledMonitor.
type Monitor interface {
	Spec() Spec
	Outputs() []*Output
	MainOutput() *Output
	Modes() []*Mode
	PreferredMode() *Mode
	CurrentMode() *Mode
	ModeFromSpec(spec ModeSpec) *Mode
	ModeFromID(id string) *Mode
	IsPrimary() bool
	IsLaptopPanel() bool
	IsUnderscanning() bool
	SupportsUnderscanning() bool
	ConnectorType() ConnectorType
	PhysicalDimensions() (widthMM, heightMM int)
	// SuggestedPosition returns the position the hardware proposes, if any.
	SuggestedPosition() (x, y int, ok bool)
	// CalculateCrtcPos returns the position of output inside the monitor when
	// driven in mode with the given CRTC transform.
	CalculateCrtcPos(mode *Mode, output *Output, transform Transform) (x, y int)

	sealed()
}

type monitorBase struct {
	spec      Spec
	outputs   []*Output
	main      *Output
	modes     []*Mode
	modeIDs   map[string]*Mode
	preferred *Mode
	current   *Mode
}

func (b *monitorBase) generateSpec() {
	b.spec = Spec{
		Connector: b.main.Name,
		Vendor:    b.main.Vendor,
		Product:   b.main.Product,
		Serial:    b.main.Serial,
	}
}

// addMode appends mode unless a mode with the same id exists, and returns
// the mode that ends up registered under that id.
func (b *monitorBase) addMode(mode *Mode) (*Mode, bool) {
	if b.modeIDs == nil {
		b.modeIDs = map[string]*Mode{}
	}
	if existing, ok := b.modeIDs[mode.ID]; ok {
		return existing, false
	}
	b.modes = append(b.modes, mode)
	b.modeIDs[mode.ID] = mode
	return mode, true
}

func (b *monitorBase) Spec() Spec { return b.spec }
func (b *monitorBase) Outputs() []*Output { return b.outputs }
func (b *monitorBase) MainOutput() *Output { return b.main }
func (b *monitorBase) Modes() []*Mode { return b.modes }
func (b *monitorBase) PreferredMode() *Mode { return b.preferred }
func (b *monitorBase) CurrentMode() *Mode { return b.current }
func (b *monitorBase) ModeFromID(id string) *Mode {
	return b.modeIDs[id]
}

func (b *monitorBase) ModeFromSpec(spec ModeSpec) *Mode {
	for _, mode := range b.modes {
		if mode.Spec.Equal(spec) {
			return mode
		}
	}
	return nil
}

func (b *monitorBase) IsPrimary() bool { return b.main.IsPrimary }
func (b *monitorBase) IsLaptopPanel() bool { return b.main.ConnectorType.IsBuiltin() }
func (b *monitorBase) IsUnderscanning() bool { return b.main.IsUnderscanning }
func (b *monitorBase) SupportsUnderscanning() bool { return b.main.SupportsUnderscanning }
func (b *monitorBase) ConnectorType() ConnectorType { return b.main.ConnectorType }
func (b *monitorBase) PhysicalDimensions() (int, int) { return b.main.WidthMM, b.main.HeightMM }
func (b *monitorBase) sealed() {}

// isModeAssigned reports whether every output currently runs the CRTC mode
// that mode asks of it.
func (b *monitorBase) isModeAssigned(mode *Mode) bool {
	for i, output := range b.outputs {
		crtcMode := mode.CrtcModes[i].Mode
		if crtcMode != nil && (output.Crtc == nil || output.Crtc.CurrentMode != crtcMode) {
			return false
		}
		if crtcMode == nil && output.Crtc != nil {
			return false
		}
	}
	return true
}

func modeSpecFromCrtcMode(crtcMode *CrtcMode) ModeSpec {
	return ModeSpec{
		Width:       crtcMode.Width,
		Height:      crtcMode.Height,
		RefreshRate: crtcMode.RefreshRate,
		Flags:       crtcMode.Flags & handledModeFlags,
	}
}

// NormalMonitor is a monitor driven by a single output.
type NormalMonitor struct {
	monitorBase
}

func NewNormal(output *Output) *NormalMonitor {
	m := &NormalMonitor{}
	m.outputs = []*Output{output}
	m.main = output
	m.generateSpec()
	m.generateModes()
	return m
}

func (m *NormalMonitor) generateModes() {
	output := m.main
	for _, crtcMode := range output.Modes {
		spec := modeSpecFromCrtcMode(crtcMode)
		mode, _ := m.addMode(&Mode{
			ID:        spec.ID(),
			Spec:      spec,
			CrtcModes: []CrtcModeAssignment{{Output: output, Mode: crtcMode}},
		})
		if crtcMode == output.PreferredMode {
			m.preferred = mode
		}
		if output.Crtc != nil && crtcMode == output.Crtc.CurrentMode {
			m.current = mode
		}
	}
}

func (m *NormalMonitor) SuggestedPosition() (int, int, bool) {
	if m.main.SuggestedX < 0 && m.main.SuggestedY < 0 {
		return 0, 0, false
	}
	return m.main.SuggestedX, m.main.SuggestedY, true
}

func (m *NormalMonitor) CalculateCrtcPos(mode *Mode, output *Output, transform Transform) (int, int) {
	return 0, 0
}

// TiledMonitor is a monitor assembled from several outputs sharing a tile group.
type TiledMonitor struct {
	monitorBase
	groupID uint32
	origin  *Output
}

// NewTiled builds the monitor for the tile group of origin, which must be the
// (0, 0) tile. outputs lists every output of the group in detection order.
func NewTiled(origin *Output, outputs []*Output, logger *slog.Logger) *TiledMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &TiledMonitor{groupID: origin.Tile.GroupID, origin: origin}
	m.outputs = outputs
	m.main = m.findUntiledOutput()
	m.generateSpec()
	m.generateModes(logger)
	return m
}

func (m *TiledMonitor) GroupID() uint32 { return m.groupID }

func (m *TiledMonitor) SuggestedPosition() (int, int, bool) {
	return 0, 0, false
}

func (m *TiledMonitor) CalculateCrtcPos(mode *Mode, output *Output, transform Transform) (int, int) {
	if !mode.tiled {
		return 0, 0
	}
	return m.tileCoordinate(output, transform)
}

func (m *TiledMonitor) tileCoordinate(output *Output, transform Transform) (int, int) {
	x, y := 0, 0
	t := output.Tile
	for _, other := range m.outputs {
		o := other.Tile
		switch transform {
		case TransformNormal, TransformFlipped:
			if o.LocVTile == t.LocVTile && o.LocHTile < t.LocHTile {
				x += int(o.TileW)
			}
			if o.LocHTile == t.LocHTile && o.LocVTile < t.LocVTile {
				y += int(o.TileH)
			}
		case Transform180, TransformFlipped180:
			if o.LocVTile == t.LocVTile && o.LocHTile > t.LocHTile {
				x += int(o.TileW)
			}
			if o.LocHTile == t.LocHTile && o.LocVTile > t.LocVTile {
				y += int(o.TileH)
			}
		case Transform270, TransformFlipped270:
			if o.LocVTile == t.LocVTile && o.LocHTile < t.LocHTile {
				y += int(o.TileW)
			}
			if o.LocHTile == t.LocHTile && o.LocVTile < t.LocVTile {
				x += int(o.TileH)
			}
		case Transform90, TransformFlipped90:
			if o.LocVTile == t.LocVTile && o.LocHTile > t.LocHTile {
				y += int(o.TileW)
			}
			if o.LocHTile == t.LocHTile && o.LocVTile > t.LocVTile {
				x += int(o.TileH)
			}
		}
	}
	return x, y
}

func (m *TiledMonitor) tiledSize() (int, int) {
	width, height := 0, 0
	for _, output := range m.outputs {
		if output.Tile.LocVTile == 0 {
			width += int(output.Tile.TileW)
		}
		if output.Tile.LocHTile == 0 {
			height += int(output.Tile.TileH)
		}
	}
	return width, height
}

func countUntiledCrtcModes(output *Output) int {
	count := 0
	for _, mode := range output.Modes {
		if !output.isCrtcModeTiled(mode) {
			count++
		}
	}
	return count
}

// findUntiledOutput picks the tile with the most untiled modes; it is assumed
// to drive the monitor when running untiled.
func (m *TiledMonitor) findUntiledOutput() *Output {
	best := m.origin
	bestCount := countUntiledCrtcModes(m.origin)
	for _, output := range m.outputs {
		if output == m.origin {
			continue
		}
		if count := countUntiledCrtcModes(output); count > bestCount {
			best = output
			bestCount = count
		}
	}
	return best
}

func findTiledCrtcMode(output *Output, reference *CrtcMode) *CrtcMode {
	if output.PreferredMode != nil && output.isCrtcModeTiled(output.PreferredMode) {
		return output.PreferredMode
	}
	for _, mode := range output.Modes {
		if !output.isCrtcModeTiled(mode) {
			continue
		}
		if mode.RefreshRate != reference.RefreshRate || mode.Flags != reference.Flags {
			continue
		}
		return mode
	}
	return nil
}

func (m *TiledMonitor) createTiledMode(reference *CrtcMode, logger *slog.Logger) (*Mode, bool) {
	width, height := m.tiledSize()
	spec := ModeSpec{
		Width:       width,
		Height:      height,
		RefreshRate: reference.RefreshRate,
		Flags:       reference.Flags & handledModeFlags,
	}
	mode := &Mode{ID: spec.ID(), Spec: spec, tiled: true}
	preferred := true
	for _, output := range m.outputs {
		crtcMode := findTiledCrtcMode(output, reference)
		if crtcMode == nil {
			logger.Warn("no tiled mode found", "output", output.Name)
			return nil, false
		}
		mode.CrtcModes = append(mode.CrtcModes, CrtcModeAssignment{Output: output, Mode: crtcMode})
		preferred = preferred && crtcMode == output.PreferredMode
	}
	return mode, preferred
}

func (m *TiledMonitor) generateTiledModes(logger *slog.Logger) {
	var tiledModes []*Mode
	for _, reference := range m.main.Modes {
		if !m.main.isCrtcModeTiled(reference) {
			continue
		}
		mode, preferred := m.createTiledMode(reference, logger)
		if mode == nil {
			continue
		}
		tiledModes = append(tiledModes, mode)
		if m.isModeAssigned(mode) {
			m.current = mode
		}
		if preferred {
			m.preferred = mode
		}
	}

	var best *Mode
	for _, mode := range tiledModes {
		if _, added := m.addMode(mode); !added {
			continue
		}
		if m.preferred == nil && (best == nil || mode.Spec.RefreshRate > best.Spec.RefreshRate) {
			best = mode
		}
	}
	if best != nil {
		m.preferred = best
	}
}

func (m *TiledMonitor) generateUntiledModes() {
	for _, crtcMode := range m.main.Modes {
		if m.main.isCrtcModeTiled(crtcMode) {
			continue
		}
		spec := modeSpecFromCrtcMode(crtcMode)
		mode := &Mode{ID: spec.ID(), Spec: spec}
		for _, output := range m.outputs {
			assignment := CrtcModeAssignment{Output: output}
			if output == m.main {
				assignment.Mode = crtcMode
			}
			mode.CrtcModes = append(mode.CrtcModes, assignment)
		}
		if _, added := m.addMode(mode); !added {
			continue
		}
		if m.current == nil && m.isModeAssigned(mode) {
			m.current = mode
		}
		if m.preferred == nil && crtcMode == m.main.PreferredMode {
			m.preferred = mode
		}
	}
}

// findBestMode prefers the largest area, then the highest refresh rate.
func (m *TiledMonitor) findBestMode() *Mode {
	var best *Mode
	for _, mode := range m.modes {
		if best == nil {
			best = mode
			continue
		}
		area := mode.Spec.Width * mode.Spec.Height
		bestArea := best.Spec.Width * best.Spec.Height
		if area > bestArea {
			best = mode
			continue
		}
		if mode.Spec.RefreshRate > best.Spec.RefreshRate {
			best = mode
		}
	}
	return best
}

func (m *TiledMonitor) generateModes(logger *slog.Logger) {
	m.generateTiledModes(logger)
	if m.preferred == nil {
		logger.Warn("tiled monitor has no tiled modes", "connector", m.spec.Connector)
	}
	m.generateUntiledModes()
	if m.preferred == nil {
		logger.Warn("tiled monitor has no valid preferred mode", "connector", m.spec.Connector)
		m.preferred = m.findBestMode()
	}
}
