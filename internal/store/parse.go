package store

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

// FormatVersion is the version attribute of the document element.
const FormatVersion = "2"

// ErrParse is wrapped by every error caused by a malformed document.
var ErrParse = errors.New("malformed monitors config")

type parserState int

const (
	stateInitial parserState = iota
	stateMonitors
	stateConfiguration
	stateMigrated
	stateDisabled
	stateLogicalMonitor
	stateLogicalMonitorX
	stateLogicalMonitorY
	stateLogicalMonitorPrimary
	stateLogicalMonitorPresentation
	stateLogicalMonitorScale
	stateTransform
	stateTransformRotation
	stateTransformFlipped
	stateMonitor
	stateMonitorSpec
	stateMonitorSpecConnector
	stateMonitorSpecVendor
	stateMonitorSpecProduct
	stateMonitorSpecSerial
	stateMonitorMode
	stateMonitorModeWidth
	stateMonitorModeHeight
	stateMonitorModeRate
	stateMonitorUnderscanning
)

// isLeaf reports whether the state collects text content.
func (s parserState) isLeaf() bool {
	switch s {
	case stateInitial, stateMonitors, stateConfiguration, stateMigrated,
		stateDisabled, stateLogicalMonitor, stateTransform, stateMonitor,
		stateMonitorSpec, stateMonitorMode:
		return false
	}
	return true
}

var rotations = map[string]monitor.Transform{
	"normal":      monitor.TransformNormal,
	"left":        monitor.Transform90,
	"upside_down": monitor.Transform180,
	"right":       monitor.Transform270,
}

type parser struct {
	state      parserState
	layoutMode monitor.LayoutMode
	caps       monitorconfig.Capabilities
	done       bool

	// configs collects finished configurations; the caller commits them.
	configs map[string]*monitorconfig.MonitorsConfig
	order   []string

	logicalMonitors []*monitorconfig.LogicalMonitorConfig
	logicalMonitor  *monitorconfig.LogicalMonitorConfig
	monitorConfig   *monitorconfig.MonitorConfig
	migrated        bool
	disabled        []monitor.Spec
	spec            *monitor.Spec
	specParent      parserState
	mode            *monitor.ModeSpec
	rotation        monitor.Transform
	flipped         bool
	text            strings.Builder
}

func parseError(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// parseDocument reads a whole document. Nothing is returned unless every
// configuration in it is valid.
func parseDocument(r io.Reader, hw Hardware) ([]*monitorconfig.MonitorsConfig, error) {
	p := &parser{
		layoutMode: hw.DefaultLayoutMode(),
		caps:       hw,
		configs:    map[string]*monitorconfig.MonitorsConfig{},
	}
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("STORE_PARSE: %w: %v", ErrParse, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			err = p.startElement(t)
		case xml.EndElement:
			err = p.endElement(t)
		case xml.CharData:
			err = p.charData(t)
		}
		if err != nil {
			line, col := dec.InputPos()
			if errors.Is(err, monitorconfig.ErrInvalid) {
				return nil, fmt.Errorf("STORE_VALIDATE: line %d char %d: %w", line, col, err)
			}
			return nil, fmt.Errorf("STORE_PARSE: %w: line %d char %d: %v", ErrParse, line, col, err)
		}
	}
	if !p.done {
		return nil, fmt.Errorf("STORE_PARSE: %w: document is empty or incomplete", ErrParse)
	}

	configs := make([]*monitorconfig.MonitorsConfig, 0, len(p.order))
	for _, id := range p.order {
		configs = append(configs, p.configs[id])
	}
	return configs, nil
}

func (p *parser) startElement(el xml.StartElement) error {
	name := el.Name.Local
	switch p.state {
	case stateInitial:
		if p.done {
			return parseError("Unexpected element '%s' after document element", name)
		}
		if name != "monitors" {
			return parseError("Invalid document element '%s'", name)
		}
		version, ok := attr(el, "version")
		if !ok {
			return parseError("Missing config file format version")
		}
		if version != FormatVersion {
			return parseError("Invalid or unsupported version '%s'", version)
		}
		p.state = stateMonitors

	case stateMonitors:
		if name != "configuration" {
			return parseError("Invalid toplevel element '%s'", name)
		}
		p.state = stateConfiguration

	case stateConfiguration:
		switch name {
		case "logicalmonitor":
			p.logicalMonitor = &monitorconfig.LogicalMonitorConfig{}
			p.state = stateLogicalMonitor
		case "migrated":
			p.migrated = true
			p.state = stateMigrated
		case "disabled":
			p.state = stateDisabled
		default:
			return parseError("Invalid configuration element '%s'", name)
		}

	case stateMigrated:
		return parseError("Unexpected element '%s' under migrated", name)

	case stateDisabled:
		if name != "monitorspec" {
			return parseError("Invalid element '%s' in disabled", name)
		}
		p.spec = &monitor.Spec{}
		p.specParent = stateDisabled
		p.state = stateMonitorSpec

	case stateLogicalMonitor:
		switch name {
		case "x":
			p.state = stateLogicalMonitorX
		case "y":
			p.state = stateLogicalMonitorY
		case "scale":
			p.state = stateLogicalMonitorScale
		case "primary":
			p.state = stateLogicalMonitorPrimary
		case "presentation":
			p.state = stateLogicalMonitorPresentation
		case "transform":
			p.state = stateTransform
		case "monitor":
			p.monitorConfig = &monitorconfig.MonitorConfig{}
			p.state = stateMonitor
		default:
			return parseError("Invalid monitor logicalmonitor element '%s'", name)
		}

	case stateLogicalMonitorX, stateLogicalMonitorY, stateLogicalMonitorScale,
		stateLogicalMonitorPrimary, stateLogicalMonitorPresentation:
		return parseError("Invalid logical monitor element '%s'", name)

	case stateTransform:
		switch name {
		case "rotation":
			p.state = stateTransformRotation
		case "flipped":
			p.state = stateTransformFlipped
		default:
			return parseError("Invalid transform element '%s'", name)
		}

	case stateTransformRotation, stateTransformFlipped:
		return parseError("Invalid transform element '%s'", name)

	case stateMonitor:
		switch name {
		case "monitorspec":
			p.spec = &monitor.Spec{}
			p.specParent = stateMonitor
			p.state = stateMonitorSpec
		case "mode":
			p.mode = &monitor.ModeSpec{}
			p.state = stateMonitorMode
		case "underscanning":
			p.state = stateMonitorUnderscanning
		default:
			return parseError("Invalid monitor element '%s'", name)
		}

	case stateMonitorSpec:
		switch name {
		case "connector":
			p.state = stateMonitorSpecConnector
		case "vendor":
			p.state = stateMonitorSpecVendor
		case "product":
			p.state = stateMonitorSpecProduct
		case "serial":
			p.state = stateMonitorSpecSerial
		default:
			return parseError("Invalid monitor spec element '%s'", name)
		}

	case stateMonitorSpecConnector, stateMonitorSpecVendor,
		stateMonitorSpecProduct, stateMonitorSpecSerial:
		return parseError("Invalid monitor spec element '%s'", name)

	case stateMonitorMode:
		switch name {
		case "width":
			p.state = stateMonitorModeWidth
		case "height":
			p.state = stateMonitorModeHeight
		case "rate":
			p.state = stateMonitorModeRate
		default:
			return parseError("Invalid mode element '%s'", name)
		}

	case stateMonitorModeWidth, stateMonitorModeHeight, stateMonitorModeRate:
		return parseError("Invalid mode sub element '%s'", name)

	case stateMonitorUnderscanning:
		return parseError("Invalid element '%s' under underscanning", name)
	}
	p.text.Reset()
	return nil
}

func (p *parser) charData(data xml.CharData) error {
	if p.state.isLeaf() {
		p.text.Write(data)
		return nil
	}
	if strings.TrimSpace(string(data)) != "" {
		return parseError("Unexpected content at this point")
	}
	return nil
}

func (p *parser) endElement(el xml.EndElement) error {
	if p.state.isLeaf() {
		text := p.text.String()
		p.text.Reset()
		if text != "" {
			if err := p.leafText(text); err != nil {
				return err
			}
		}
	}

	switch p.state {
	case stateLogicalMonitorX, stateLogicalMonitorY, stateLogicalMonitorScale,
		stateLogicalMonitorPrimary, stateLogicalMonitorPresentation:
		p.state = stateLogicalMonitor

	case stateTransform:
		p.logicalMonitor.Transform = p.rotation
		if p.flipped {
			p.logicalMonitor.Transform += monitor.TransformFlipped
		}
		p.rotation = monitor.TransformNormal
		p.flipped = false
		p.state = stateLogicalMonitor

	case stateTransformRotation, stateTransformFlipped:
		p.state = stateTransform

	case stateMonitorSpecConnector, stateMonitorSpecVendor,
		stateMonitorSpecProduct, stateMonitorSpecSerial:
		p.state = stateMonitorSpec

	case stateMonitorSpec:
		if err := monitorconfig.VerifyMonitorSpec(p.spec); err != nil {
			return err
		}
		if p.specParent == stateDisabled {
			p.disabled = append(p.disabled, *p.spec)
		} else {
			p.monitorConfig.Spec = p.spec
		}
		p.spec = nil
		p.state = p.specParent

	case stateMigrated, stateDisabled:
		p.state = stateConfiguration

	case stateMonitorModeWidth, stateMonitorModeHeight, stateMonitorModeRate:
		p.state = stateMonitorMode

	case stateMonitorMode:
		if err := monitorconfig.VerifyModeSpec(p.mode); err != nil {
			return err
		}
		p.monitorConfig.Mode = p.mode
		p.mode = nil
		p.state = stateMonitor

	case stateMonitorUnderscanning:
		p.state = stateMonitor

	case stateMonitor:
		if err := monitorconfig.VerifyMonitorConfig(p.monitorConfig); err != nil {
			return err
		}
		p.logicalMonitor.MonitorConfigs = append(p.logicalMonitor.MonitorConfigs, p.monitorConfig)
		p.monitorConfig = nil
		p.state = stateLogicalMonitor

	case stateLogicalMonitor:
		if p.logicalMonitor.Scale == 0 {
			p.logicalMonitor.Scale = 1
		}
		p.logicalMonitors = append(p.logicalMonitors, p.logicalMonitor)
		p.logicalMonitor = nil
		p.state = stateConfiguration

	case stateConfiguration:
		if err := p.finishConfiguration(); err != nil {
			return err
		}
		p.state = stateMonitors

	case stateMonitors:
		p.state = stateInitial
		p.done = true
	}
	return nil
}

// finishConfiguration validates the collected logical monitors. A config
// marked migrated keeps the physical layout of the legacy format until it is
// finished against real hardware.
func (p *parser) finishConfiguration() error {
	layoutMode, flags := p.layoutMode, monitorconfig.FlagNone
	if p.migrated {
		layoutMode, flags = monitor.LayoutModePhysical, monitorconfig.FlagMigrated
	}
	for _, lm := range p.logicalMonitors {
		if err := deriveLogicalMonitorLayout(lm, layoutMode); err != nil {
			return err
		}
		if err := monitorconfig.VerifyLogicalMonitorConfig(lm, layoutMode, p.caps); err != nil {
			return err
		}
	}
	cfg := monitorconfig.New(p.logicalMonitors, layoutMode, flags).WithDisabled(p.disabled)
	p.logicalMonitors = nil
	p.migrated = false
	p.disabled = nil
	if err := monitorconfig.VerifyMonitorsConfig(cfg, p.caps); err != nil {
		return err
	}

	id := cfg.Key.ID()
	if _, exists := p.configs[id]; !exists {
		p.order = append(p.order, id)
	}
	p.configs[id] = cfg
	return nil
}

func deriveLogicalMonitorLayout(lm *monitorconfig.LogicalMonitorConfig, layoutMode monitor.LayoutMode) error {
	if len(lm.MonitorConfigs) == 0 {
		return parseError("Logical monitor is empty")
	}
	first := lm.MonitorConfigs[0].Mode
	for _, mc := range lm.MonitorConfigs[1:] {
		if mc.Mode.Width != first.Width || mc.Mode.Height != first.Height {
			return parseError("Monitors in logical monitor incompatible")
		}
	}

	width, height := first.Width, first.Height
	if lm.Transform.IsRotated() {
		width, height = height, width
	}
	if layoutMode == monitor.LayoutModeLogical {
		width = int(float64(width) / lm.Scale)
		height = int(float64(height) / lm.Scale)
	}
	lm.Layout.Width = width
	lm.Layout.Height = height
	return nil
}

func (p *parser) leafText(text string) error {
	var err error
	switch p.state {
	case stateMonitorSpecConnector:
		p.spec.Connector = text
	case stateMonitorSpecVendor:
		p.spec.Vendor = text
	case stateMonitorSpecProduct:
		p.spec.Product = text
	case stateMonitorSpecSerial:
		p.spec.Serial = text
	case stateLogicalMonitorX:
		p.logicalMonitor.Layout.X, err = readInt(text)
	case stateLogicalMonitorY:
		p.logicalMonitor.Layout.Y, err = readInt(text)
	case stateLogicalMonitorScale:
		p.logicalMonitor.Scale, err = readFloat(text)
		if err == nil && p.logicalMonitor.Scale < 1 {
			err = parseError("Logical monitor scale '%g' invalid", p.logicalMonitor.Scale)
		}
	case stateLogicalMonitorPrimary:
		p.logicalMonitor.IsPrimary, err = readBool(text)
	case stateLogicalMonitorPresentation:
		p.logicalMonitor.IsPresentation, err = readBool(text)
	case stateTransformRotation:
		rotation, ok := rotations[text]
		if !ok {
			return parseError("Invalid rotation type %s", text)
		}
		p.rotation = rotation
	case stateTransformFlipped:
		p.flipped, err = readBool(text)
	case stateMonitorModeWidth:
		p.mode.Width, err = readInt(text)
	case stateMonitorModeHeight:
		p.mode.Height, err = readInt(text)
	case stateMonitorModeRate:
		p.mode.RefreshRate, err = readFloat(text)
	case stateMonitorUnderscanning:
		p.monitorConfig.EnableUnderscanning, err = readBool(text)
	}
	return err
}

func readInt(text string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimLeft(text, " \t\n\r\v\f"), 10, 64)
	if err != nil || value < 0 || value > 32767 {
		return 0, parseError("Expected a number, got %s", text)
	}
	return int(value), nil
}

func readFloat(text string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimLeft(text, " \t\n\r\v\f"), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, parseError("Expected a number, got %s", text)
	}
	return value, nil
}

func readBool(text string) (bool, error) {
	switch text {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, parseError("Invalid boolean value '%s'", text)
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
