package migrate

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"monitorcfg/internal/monitor"
	"monitorcfg/internal/store"
)

// LegacyVersion is the version attribute of a legacy document.
const LegacyVersion = "1"

type outputKey struct {
	connector string
	vendor    string
	product   string
	serial    string
}

func (k outputKey) spec() monitor.Spec {
	return monitor.Spec{Connector: k.connector, Vendor: k.vendor, Product: k.product, Serial: k.serial}
}

type outputConfig struct {
	enabled        bool
	rect           monitor.Rectangle
	refreshRate    float64
	transform      monitor.Transform
	isPrimary      bool
	isPresentation bool
	isUnderscan    bool
}

// legacyConfig is one <configuration> of a legacy document: outputs in
// document order.
type legacyConfig struct {
	keys    []outputKey
	outputs []outputConfig
}

// id identifies a legacy configuration by its output keys, in order.
func (c *legacyConfig) id() string {
	var b strings.Builder
	for _, k := range c.keys {
		for _, field := range []string{k.connector, k.vendor, k.product, k.serial} {
			b.WriteString(strconv.Quote(field))
		}
		b.WriteByte(';')
	}
	return b.String()
}

func (c *legacyConfig) name() string {
	parts := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		parts = append(parts, k.connector+":"+k.vendor+":"+k.product+":"+k.serial)
	}
	return strings.Join(parts, ", ")
}

type legacyState int

const (
	legacyInitial legacyState = iota
	legacyMonitors
	legacyConfiguration
	legacyOutput
	legacyOutputField
	legacyClone
)

var outputFields = map[string]bool{
	"vendor": true, "product": true, "serial": true,
	"width": true, "height": true, "rate": true,
	"x": true, "y": true,
	"rotation": true, "reflect_x": true, "reflect_y": true,
	"primary": true, "presentation": true, "underscanning": true,
}

var legacyRotations = map[string]monitor.Transform{
	"normal":      monitor.TransformNormal,
	"left":        monitor.Transform90,
	"upside_down": monitor.Transform180,
	"right":       monitor.Transform270,
}

type legacyParser struct {
	state        legacyState
	unknownCount int
	done         bool

	current *legacyConfig
	key     outputKey
	hasKey  [3]bool
	output  outputConfig
	field   string
	text    strings.Builder

	configs map[string]*legacyConfig
	order   []string
}

// parseLegacy reads a whole legacy document. Configurations with equal
// output keys collapse into the last one, kept at the first one's position.
func parseLegacy(r io.Reader) ([]*legacyConfig, error) {
	p := &legacyParser{configs: map[string]*legacyConfig{}}
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("MIGRATE_PARSE: %w: %v", store.ErrParse, err)
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
			return nil, fmt.Errorf("MIGRATE_PARSE: %w: line %d char %d: %v", store.ErrParse, line, col, err)
		}
	}
	if !p.done {
		return nil, fmt.Errorf("MIGRATE_PARSE: %w: document is empty or incomplete", store.ErrParse)
	}

	configs := make([]*legacyConfig, 0, len(p.order))
	for _, id := range p.order {
		configs = append(configs, p.configs[id])
	}
	return configs, nil
}

func (p *legacyParser) startElement(el xml.StartElement) error {
	name := el.Name.Local
	switch p.state {
	case legacyInitial:
		if p.done {
			return fmt.Errorf("Unexpected element '%s' after document element", name)
		}
		if name != "monitors" {
			return fmt.Errorf("Invalid document element %s", name)
		}
		version, ok := attr(el, "version")
		if !ok {
			return fmt.Errorf("Element 'monitors' requires attribute 'version'")
		}
		if version != LegacyVersion {
			return fmt.Errorf("Invalid or unsupported version %s", version)
		}
		p.state = legacyMonitors

	case legacyMonitors:
		if name != "configuration" {
			return fmt.Errorf("Invalid toplevel element %s", name)
		}
		p.current = &legacyConfig{}
		p.state = legacyConfiguration

	case legacyConfiguration:
		switch {
		case p.unknownCount == 0 && name == "clone":
			p.state = legacyClone
		case p.unknownCount == 0 && name == "output":
			connector, ok := attr(el, "name")
			if !ok {
				return fmt.Errorf("Element 'output' requires attribute 'name'")
			}
			p.key = outputKey{connector: connector}
			p.hasKey = [3]bool{}
			p.output = outputConfig{}
			p.state = legacyOutput
		default:
			p.unknownCount++
		}

	case legacyOutput:
		if p.unknownCount == 0 && outputFields[name] {
			p.field = name
			p.text.Reset()
			p.state = legacyOutputField
		} else {
			p.unknownCount++
		}

	case legacyClone, legacyOutputField:
		return fmt.Errorf("Unexpected element %s", name)
	}
	return nil
}

func (p *legacyParser) charData(data xml.CharData) error {
	switch p.state {
	case legacyOutputField:
		p.text.Write(data)
	case legacyMonitors, legacyConfiguration, legacyOutput:
		if p.unknownCount == 0 && strings.TrimSpace(string(data)) != "" {
			return fmt.Errorf("Unexpected content at this point")
		}
	}
	return nil
}

func (p *legacyParser) endElement(el xml.EndElement) error {
	name := el.Name.Local
	switch p.state {
	case legacyMonitors:
		p.state = legacyInitial
		p.done = true

	case legacyConfiguration:
		if name != "configuration" || p.unknownCount != 0 {
			p.unknownCount--
			return nil
		}
		id := p.current.id()
		if _, exists := p.configs[id]; !exists {
			p.order = append(p.order, id)
		}
		p.configs[id] = p.current
		p.current = nil
		p.state = legacyMonitors

	case legacyOutput:
		if name != "output" || p.unknownCount != 0 {
			p.unknownCount--
			return nil
		}
		// Outputs without identification were disconnected.
		if p.hasKey[0] && p.hasKey[1] && p.hasKey[2] {
			p.output.enabled = p.output.rect.Width != 0 && p.output.rect.Height != 0
			p.current.keys = append(p.current.keys, p.key)
			p.current.outputs = append(p.current.outputs, p.output)
		}
		p.state = legacyConfiguration

	case legacyClone:
		p.state = legacyConfiguration

	case legacyOutputField:
		text := p.text.String()
		p.text.Reset()
		if text != "" {
			if err := p.fieldText(text); err != nil {
				return err
			}
		}
		p.field = ""
		p.state = legacyOutput
	}
	return nil
}

func (p *legacyParser) fieldText(text string) error {
	var err error
	switch p.field {
	case "vendor":
		p.key.vendor, p.hasKey[0] = text, true
	case "product":
		p.key.product, p.hasKey[1] = text, true
	case "serial":
		p.key.serial, p.hasKey[2] = text, true
	case "width":
		p.output.rect.Width, err = readInt(text)
	case "height":
		p.output.rect.Height, err = readInt(text)
	case "x":
		p.output.rect.X, err = readInt(text)
	case "y":
		p.output.rect.Y, err = readInt(text)
	case "rate":
		p.output.refreshRate, err = readFloat(text)
	case "rotation":
		rotation, ok := legacyRotations[text]
		if !ok {
			return fmt.Errorf("Invalid rotation type %s", text)
		}
		p.output.transform = rotation
	case "reflect_x":
		var flipped bool
		if flipped, err = readBool(text); flipped {
			p.output.transform += monitor.TransformFlipped
		}
	case "reflect_y":
		var flipped bool
		if flipped, err = readBool(text); flipped {
			return fmt.Errorf("Y reflection is not supported")
		}
	case "primary":
		p.output.isPrimary, err = readBool(text)
	case "presentation":
		p.output.isPresentation, err = readBool(text)
	case "underscanning":
		p.output.isUnderscan, err = readBool(text)
	}
	return err
}

func readInt(text string) (int, error) {
	value, err := strconv.ParseInt(strings.TrimLeft(text, " \t\n\r\v\f"), 10, 64)
	if err != nil || value < 0 || value > 32767 {
		return 0, fmt.Errorf("Expected a number, got %s", text)
	}
	return int(value), nil
}

func readFloat(text string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimLeft(text, " \t\n\r\v\f"), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, fmt.Errorf("Expected a number, got %s", text)
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
	return false, fmt.Errorf("Invalid boolean value %s", text)
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
