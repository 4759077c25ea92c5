package monitor

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec identifies a physical monitor.
type Spec struct {
	Connector string `json:"connector" yaml:"connector"`
	Vendor    string `json:"vendor" yaml:"vendor"`
	Product   string `json:"product" yaml:"product"`
	Serial    string `json:"serial" yaml:"serial"`
}

func (s Spec) Equal(o Spec) bool {
	return s == o
}

// Compare orders specs by connector, vendor, product and serial.
func (s Spec) Compare(o Spec) int {
	if c := strings.Compare(s.Connector, o.Connector); c != 0 {
		return c
	}
	if c := strings.Compare(s.Vendor, o.Vendor); c != 0 {
		return c
	}
	if c := strings.Compare(s.Product, o.Product); c != 0 {
		return c
	}
	return strings.Compare(s.Serial, o.Serial)
}

func (s Spec) String() string {
	return s.Connector + ":" + s.Vendor + ":" + s.Product + ":" + s.Serial
}

// ModeFlags carries the CRTC mode flags that distinguish monitor modes.
type ModeFlags uint32

const (
	ModeFlagInterlace ModeFlags = 1 << 0

	handledModeFlags = ModeFlagInterlace
)

// ModeSpec describes a monitor mode independent of the CRTC modes backing it.
type ModeSpec struct {
	Width       int       `json:"width" yaml:"width"`
	Height      int       `json:"height" yaml:"height"`
	RefreshRate float64   `json:"refreshRate" yaml:"refresh_rate"`
	Flags       ModeFlags `json:"flags,omitempty" yaml:"flags,omitempty"`
}

func (m ModeSpec) Equal(o ModeSpec) bool {
	return m.Width == o.Width &&
		m.Height == o.Height &&
		m.RefreshRate == o.RefreshRate &&
		m.Flags == o.Flags
}

// ID is the stable mode identifier, e.g. "1920x1080@60" or "1920x1080i@59.94".
func (m ModeSpec) ID() string {
	interlaced := ""
	if m.Flags&ModeFlagInterlace != 0 {
		interlaced = "i"
	}
	return fmt.Sprintf("%dx%d%s@%s", m.Width, m.Height, interlaced, FormatRate(m.RefreshRate))
}

// FormatRate renders a refresh rate in the shortest form that parses back to the same value.
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'g', -1, 64)
}
