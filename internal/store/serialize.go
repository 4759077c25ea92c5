package store

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

var rotationNames = map[monitor.Transform]string{
	monitor.TransformNormal: "normal",
	monitor.Transform90:     "left",
	monitor.Transform180:    "upside_down",
	monitor.Transform270:    "right",
}

// marshalConfigs renders configs in the order given.
func marshalConfigs(configs []*monitorconfig.MonitorsConfig) []byte {
	var b bytes.Buffer
	b.WriteString(`<monitors version="` + FormatVersion + `">` + "\n")
	for _, cfg := range configs {
		b.WriteString("  <configuration>\n")
		if cfg.Flags&monitorconfig.FlagMigrated != 0 {
			b.WriteString("    <migrated/>\n")
		}
		for _, lm := range cfg.LogicalMonitorConfigs {
			appendLogicalMonitor(&b, lm)
		}
		if len(cfg.DisabledMonitorSpecs) > 0 {
			b.WriteString("    <disabled>\n")
			for _, spec := range cfg.DisabledMonitorSpecs {
				appendMonitorSpec(&b, 6, spec)
			}
			b.WriteString("    </disabled>\n")
		}
		b.WriteString("  </configuration>\n")
	}
	b.WriteString("</monitors>\n")
	return b.Bytes()
}

func appendLogicalMonitor(b *bytes.Buffer, lm *monitorconfig.LogicalMonitorConfig) {
	b.WriteString("    <logicalmonitor>\n")
	writeElement(b, 6, "x", strconv.Itoa(lm.Layout.X))
	writeElement(b, 6, "y", strconv.Itoa(lm.Layout.Y))
	writeElement(b, 6, "scale", strconv.FormatFloat(lm.Scale, 'g', -1, 64))
	if lm.IsPrimary {
		writeElement(b, 6, "primary", "yes")
	}
	if lm.IsPresentation {
		writeElement(b, 6, "presentation", "yes")
	}
	appendTransform(b, lm.Transform)
	for _, mc := range lm.MonitorConfigs {
		appendMonitor(b, mc)
	}
	b.WriteString("    </logicalmonitor>\n")
}

func appendTransform(b *bytes.Buffer, t monitor.Transform) {
	if t == monitor.TransformNormal {
		return
	}
	b.WriteString("      <transform>\n")
	writeElement(b, 8, "rotation", rotationNames[t.Rotation()])
	writeElement(b, 8, "flipped", boolString(t.IsFlipped()))
	b.WriteString("      </transform>\n")
}

func appendMonitor(b *bytes.Buffer, mc *monitorconfig.MonitorConfig) {
	b.WriteString("      <monitor>\n")
	appendMonitorSpec(b, 8, *mc.Spec)
	b.WriteString("        <mode>\n")
	writeElement(b, 10, "width", strconv.Itoa(mc.Mode.Width))
	writeElement(b, 10, "height", strconv.Itoa(mc.Mode.Height))
	writeElement(b, 10, "rate", monitor.FormatRate(mc.Mode.RefreshRate))
	b.WriteString("        </mode>\n")
	if mc.EnableUnderscanning {
		writeElement(b, 8, "underscanning", "yes")
	}
	b.WriteString("      </monitor>\n")
}

func appendMonitorSpec(b *bytes.Buffer, indent int, spec monitor.Spec) {
	pad := strings.Repeat(" ", indent)
	b.WriteString(pad + "<monitorspec>\n")
	writeElement(b, indent+2, "connector", spec.Connector)
	writeElement(b, indent+2, "vendor", spec.Vendor)
	writeElement(b, indent+2, "product", spec.Product)
	writeElement(b, indent+2, "serial", spec.Serial)
	b.WriteString(pad + "</monitorspec>\n")
}

func writeElement(b *bytes.Buffer, indent int, name, value string) {
	for i := 0; i < indent; i++ {
		b.WriteByte(' ')
	}
	b.WriteString("<" + name + ">")
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString("</" + name + ">\n")
}

func boolString(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
