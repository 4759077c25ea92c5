package monitor

import "fmt"

// Rectangle is an axis aligned region of the virtual desktop.
type Rectangle struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (r Rectangle) Equal(o Rectangle) bool {
	return r == o
}

// Overlaps reports whether r and o share any area. Touching edges do not overlap.
func (r Rectangle) Overlaps(o Rectangle) bool {
	return !(r.X+r.Width <= o.X || o.X+o.Width <= r.X ||
		r.Y+r.Height <= o.Y || o.Y+o.Height <= r.Y)
}

// IsAdjacentTo reports whether r and o share a segment of an edge.
func (r Rectangle) IsAdjacentTo(o Rectangle) bool {
	rx1, ry1 := r.X, r.Y
	rx2, ry2 := r.X+r.Width, r.Y+r.Height
	ox1, oy1 := o.X, o.Y
	ox2, oy2 := o.X+o.Width, o.Y+o.Height

	if (rx1 == ox2 || rx2 == ox1) && !(ry2 <= oy1 || ry1 >= oy2) {
		return true
	}
	if (ry1 == oy2 || ry2 == oy1) && !(rx2 <= ox1 || rx1 >= ox2) {
		return true
	}
	return false
}

// OverlapsAny reports whether r overlaps any rectangle of region.
func (r Rectangle) OverlapsAny(region []Rectangle) bool {
	for _, other := range region {
		if r.Overlaps(other) {
			return true
		}
	}
	return false
}

func (r Rectangle) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Transform is a rotation, optionally combined with a horizontal flip.
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = map[Transform]string{
	TransformNormal:     "normal",
	Transform90:         "90",
	Transform180:        "180",
	Transform270:        "270",
	TransformFlipped:    "flipped",
	TransformFlipped90:  "flipped-90",
	TransformFlipped180: "flipped-180",
	TransformFlipped270: "flipped-270",
}

// IsRotated reports whether the transform swaps width and height.
func (t Transform) IsRotated() bool {
	return t%2 != 0
}

// IsFlipped reports whether the transform includes a horizontal flip.
func (t Transform) IsFlipped() bool {
	return t >= TransformFlipped
}

// Rotation returns the transform with the flip removed.
func (t Transform) Rotation() Transform {
	if t.IsFlipped() {
		return t - TransformFlipped
	}
	return t
}

func (t Transform) Valid() bool {
	return t >= TransformNormal && t <= TransformFlipped270
}

func (t Transform) String() string {
	if name, ok := transformNames[t]; ok {
		return name
	}
	return fmt.Sprintf("transform(%d)", int(t))
}

// ParseTransform accepts the names produced by Transform.String.
func ParseTransform(s string) (Transform, error) {
	for t, name := range transformNames {
		if name == s {
			return t, nil
		}
	}
	return TransformNormal, fmt.Errorf("HW_TRANSFORM: unknown transform %q", s)
}

func (t Transform) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Transform) UnmarshalText(text []byte) error {
	parsed, err := ParseTransform(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// LayoutMode selects whether logical monitor coordinates are scaled.
type LayoutMode int

const (
	// LayoutModeLogical expresses layouts in scaled pixels.
	LayoutModeLogical LayoutMode = iota + 1
	// LayoutModePhysical expresses layouts in device pixels.
	LayoutModePhysical
)

func (m LayoutMode) String() string {
	switch m {
	case LayoutModeLogical:
		return "logical"
	case LayoutModePhysical:
		return "physical"
	default:
		return fmt.Sprintf("layout(%d)", int(m))
	}
}

func ParseLayoutMode(s string) (LayoutMode, error) {
	switch s {
	case "logical":
		return LayoutModeLogical, nil
	case "physical":
		return LayoutModePhysical, nil
	default:
		return 0, fmt.Errorf("HW_LAYOUT_MODE: unknown layout mode %q", s)
	}
}

func (m LayoutMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *LayoutMode) UnmarshalText(text []byte) error {
	parsed, err := ParseLayoutMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
