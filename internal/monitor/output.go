package monitor

// ConnectorType is the kind of physical connector behind an output.
type ConnectorType string

const (
	ConnectorUnknown     ConnectorType = "Unknown"
	ConnectorVGA         ConnectorType = "VGA"
	ConnectorDVII        ConnectorType = "DVI-I"
	ConnectorDVID        ConnectorType = "DVI-D"
	ConnectorDisplayPort ConnectorType = "DisplayPort"
	ConnectorHDMIA       ConnectorType = "HDMI-A"
	ConnectorHDMIB       ConnectorType = "HDMI-B"
	ConnectorLVDS        ConnectorType = "LVDS"
	ConnectorEDP         ConnectorType = "eDP"
	ConnectorDSI         ConnectorType = "DSI"
	ConnectorVirtual     ConnectorType = "Virtual"
)

// IsBuiltin reports whether the connector drives an internal laptop panel.
func (c ConnectorType) IsBuiltin() bool {
	switch c {
	case ConnectorEDP, ConnectorLVDS, ConnectorDSI:
		return true
	}
	return false
}

// CrtcMode is a hardware timing a CRTC can scan out.
type CrtcMode struct {
	ID          int64
	Width       int
	Height      int
	RefreshRate float64
	Flags       ModeFlags
}

// Crtc is a scanout engine. AllTransforms has bit (1 << t) set for every
// Transform t the hardware can apply natively.
type Crtc struct {
	ID            int64
	AllTransforms uint32
	CurrentMode   *CrtcMode
}

// HandlesTransform reports whether the CRTC applies t natively.
func (c *Crtc) HandlesTransform(t Transform) bool {
	return c.AllTransforms&(1<<uint(t)) != 0
}

// TileInfo places an output inside a tiled monitor. GroupID 0 means untiled.
type TileInfo struct {
	GroupID   uint32
	MaxHTiles uint32
	MaxVTiles uint32
	LocHTile  uint32
	LocVTile  uint32
	TileW     uint32
	TileH     uint32
}

// Output is a connector capable of driving a display.
type Output struct {
	ID                    int64
	Name                  string
	Vendor                string
	Product               string
	Serial                string
	ConnectorType         ConnectorType
	WidthMM               int
	HeightMM              int
	Modes                 []*CrtcMode
	PreferredMode         *CrtcMode
	PossibleCrtcs         []*Crtc
	Crtc                  *Crtc
	IsPrimary             bool
	IsPresentation        bool
	IsUnderscanning       bool
	SupportsUnderscanning bool
	SuggestedX            int
	SuggestedY            int
	Tile                  TileInfo
}

func (o *Output) isTiled() bool {
	return o.Tile.GroupID != 0
}

func (o *Output) isCrtcModeTiled(mode *CrtcMode) bool {
	return mode.Width == int(o.Tile.TileW) && mode.Height == int(o.Tile.TileH)
}
