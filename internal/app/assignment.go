package app

import (
	"monitorcfg/internal/manager"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

// Assignment is the printable result of assigning a config to the hardware.
type Assignment struct {
	Strategy manager.Strategy              `json:"strategy"`
	Config   *monitorconfig.MonitorsConfig `json:"config"`
	Crtcs    []CrtcAssignment              `json:"crtcs"`
	Outputs  []OutputAssignment            `json:"outputs"`
}

type CrtcAssignment struct {
	Crtc        int64             `json:"crtc"`
	Mode        int64             `json:"mode"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	RefreshRate float64           `json:"refreshRate"`
	X           int               `json:"x"`
	Y           int               `json:"y"`
	Transform   monitor.Transform `json:"transform"`
	Outputs     []string          `json:"outputs"`
}

type OutputAssignment struct {
	Output          string `json:"output"`
	IsPrimary       bool   `json:"primary"`
	IsPresentation  bool   `json:"presentation"`
	IsUnderscanning bool   `json:"underscanning"`
}

func newAssignment(strategy manager.Strategy, cfg *monitorconfig.MonitorsConfig, crtcs []*manager.CrtcInfo, outputs []*manager.OutputInfo) Assignment {
	a := Assignment{
		Strategy: strategy,
		Config:   cfg,
		Crtcs:    make([]CrtcAssignment, 0, len(crtcs)),
		Outputs:  make([]OutputAssignment, 0, len(outputs)),
	}
	for _, info := range crtcs {
		ca := CrtcAssignment{
			Crtc:        info.Crtc.ID,
			Mode:        info.Mode.ID,
			Width:       info.Mode.Width,
			Height:      info.Mode.Height,
			RefreshRate: info.Mode.RefreshRate,
			X:           info.X,
			Y:           info.Y,
			Transform:   info.Transform,
		}
		for _, output := range info.Outputs {
			ca.Outputs = append(ca.Outputs, output.Name)
		}
		a.Crtcs = append(a.Crtcs, ca)
	}
	for _, info := range outputs {
		a.Outputs = append(a.Outputs, OutputAssignment{
			Output:          info.Output.Name,
			IsPrimary:       info.IsPrimary,
			IsPresentation:  info.IsPresentation,
			IsUnderscanning: info.IsUnderscanning,
		})
	}
	return a
}
