// Package migrate converts legacy (version 1) monitor configurations into the
// current store format.
package migrate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"monitorcfg/internal/fsutil"
	"monitorcfg/internal/metrics"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
	"monitorcfg/internal/store"
)

var (
	errNotTiled    = errors.New("not a tiled monitor")
	errNotMainTile = errors.New("not the main tile")
)

// Hardware is what finishing a migrated config needs from the display hardware.
type Hardware interface {
	store.Hardware
	MonitorFromSpec(spec monitor.Spec) monitor.Monitor
	CalculateModeScale(m monitor.Monitor, mode *monitor.Mode) float64
}

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Result counts what happened to the configurations of a legacy document.
type Result struct {
	Migrated int `json:"migrated"`
	Failed   int `json:"failed"`
	Invalid  int `json:"invalid"`
}

type Migrator struct {
	caps    monitorconfig.Capabilities
	store   *store.ConfigStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(caps monitorconfig.Capabilities, st *store.ConfigStore, opts Options) *Migrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{caps: caps, store: st, logger: logger, metrics: opts.Metrics}
}

// Migrate parses a legacy document and adds every configuration that converts
// and verifies to the store. A malformed document adds nothing; a single
// configuration that fails is logged and skipped.
func (m *Migrator) Migrate(r io.Reader) (Result, error) {
	var res Result
	legacy, err := parseLegacy(r)
	if err != nil {
		return res, err
	}
	for _, lc := range legacy {
		cfg, err := convert(lc)
		if err != nil {
			m.logger.Warn(fmt.Sprintf("Failed to migrate monitor configuration for %s: %v", lc.name(), err))
			m.metrics.Migration("failed")
			res.Failed++
			continue
		}
		if err := monitorconfig.VerifyMonitorsConfig(cfg, m.caps); err != nil {
			m.logger.Warn(fmt.Sprintf("Ignoring invalid monitor configuration for %s: %v", lc.name(), err))
			m.metrics.Migration("invalid")
			res.Invalid++
			continue
		}
		m.store.Add(cfg)
		m.metrics.Migration("migrated")
		res.Migrated++
	}
	return res, nil
}

func (m *Migrator) MigrateFile(path string) (Result, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("MIGRATE_IO: %w", err)
	}
	return m.Migrate(bytes.NewReader(blob))
}

// MigrateUserFile backs up the legacy user file before migrating it. A failed
// backup is logged and does not stop the migration.
func (m *Migrator) MigrateUserFile(legacyPath, backupPath string) (Result, error) {
	if backupPath != "" {
		if err := fsutil.CopyFile(legacyPath, backupPath); err != nil {
			m.logger.Warn("Failed to make a backup of monitors.xml", "path", backupPath, "error", err)
		}
	}
	return m.MigrateFile(legacyPath)
}

// Finish turns a migrated config into a regular one for the connected
// hardware: scales are computed from the monitors, the default layout mode is
// applied and the result replaces cfg in the store. In logical layout mode the
// physical layout is divided by each new scale. cfg itself is unchanged.
func Finish(hw Hardware, st *store.ConfigStore, cfg *monitorconfig.MonitorsConfig) (*monitorconfig.MonitorsConfig, error) {
	layoutMode := hw.DefaultLayoutMode()
	logicalMonitors := make([]*monitorconfig.LogicalMonitorConfig, 0, len(cfg.LogicalMonitorConfigs))
	for _, lm := range cfg.LogicalMonitorConfigs {
		mc := lm.MonitorConfigs[0]
		mon := hw.MonitorFromSpec(*mc.Spec)
		if mon == nil {
			return nil, fmt.Errorf("MIGRATE_CONFIG: monitor %s not connected", mc.Spec)
		}
		mode := mon.ModeFromSpec(*mc.Mode)
		if mode == nil {
			return nil, fmt.Errorf("MIGRATE_CONFIG: Mode not available on monitor")
		}
		finished := *lm
		finished.Scale = hw.CalculateModeScale(mon, mode)
		if layoutMode == monitor.LayoutModeLogical {
			finished.Layout = scaleLayout(lm.Layout, finished.Scale)
		}
		logicalMonitors = append(logicalMonitors, &finished)
	}

	out := monitorconfig.New(logicalMonitors, layoutMode, cfg.Flags&^monitorconfig.FlagMigrated)
	out.DisabledMonitorSpecs = cfg.DisabledMonitorSpecs
	if err := monitorconfig.Verify(out, hw); err != nil {
		return nil, fmt.Errorf("MIGRATE_CONFIG: %w", err)
	}
	st.Add(out)
	return out, nil
}

func scaleLayout(r monitor.Rectangle, scale float64) monitor.Rectangle {
	return monitor.Rectangle{
		X:      int(float64(r.X) / scale),
		Y:      int(float64(r.Y) / scale),
		Width:  int(float64(r.Width) / scale),
		Height: int(float64(r.Height) / scale),
	}
}

func convert(lc *legacyConfig) (*monitorconfig.MonitorsConfig, error) {
	var logicalMonitors []*monitorconfig.LogicalMonitorConfig
	for i := range lc.keys {
		key, output := lc.keys[i], lc.outputs[i]
		if !output.enabled {
			continue
		}

		var (
			mc     *monitorconfig.MonitorConfig
			layout monitor.Rectangle
			err    error
		)
		if key.vendor != "unknown" && key.product != "unknown" && key.serial != "unknown" {
			mc, layout, err = deriveTiledMonitorConfig(lc, i)
			switch {
			case errors.Is(err, errNotMainTile):
				continue
			case errors.Is(err, errNotTiled):
				mc = nil
			case err != nil:
				return nil, err
			}
		}
		if mc == nil {
			if mc, layout, err = deriveMonitorConfig(key, output); err != nil {
				return nil, err
			}
		}

		lm := ensureLogicalMonitor(&logicalMonitors, output, layout)
		lm.MonitorConfigs = append(lm.MonitorConfigs, mc)
	}
	if len(logicalMonitors) == 0 {
		return nil, fmt.Errorf("MIGRATE_CONFIG: Empty configuration")
	}

	var disabled []monitor.Spec
	for i, output := range lc.outputs {
		if !output.enabled {
			disabled = append(disabled, lc.keys[i].spec())
		}
	}
	cfg := monitorconfig.New(logicalMonitors, monitor.LayoutModePhysical, monitorconfig.FlagMigrated)
	return cfg.WithDisabled(disabled), nil
}

func newMonitorConfig(key outputKey, output outputConfig, width, height int) (*monitorconfig.MonitorConfig, error) {
	mode := &monitor.ModeSpec{Width: width, Height: height, RefreshRate: output.refreshRate}
	if err := monitorconfig.VerifyModeSpec(mode); err != nil {
		return nil, err
	}
	spec := key.spec()
	mc := &monitorconfig.MonitorConfig{
		Spec:                &spec,
		Mode:                mode,
		EnableUnderscanning: output.isUnderscan,
	}
	if err := monitorconfig.VerifyMonitorConfig(mc); err != nil {
		return nil, err
	}
	return mc, nil
}

// deriveTiledMonitorConfig treats every output sharing the identity of output
// idx as a tile of one monitor. Only the tile that is the origin under the
// configured transform yields a monitor config; it spans all tiles.
func deriveTiledMonitorConfig(lc *legacyConfig, idx int) (*monitorconfig.MonitorConfig, monitor.Rectangle, error) {
	key, output := lc.keys[idx], lc.outputs[idx]
	topLeft, topRight, bottomLeft, bottomRight := -1, -1, -1, -1
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := 0, 0

	for i, other := range lc.keys {
		if other.vendor != key.vendor || other.product != key.product || other.serial != key.serial {
			continue
		}
		rect := lc.outputs[i].rect
		minX = min(minX, rect.X)
		minY = min(minY, rect.Y)
		maxX = max(maxX, rect.X+rect.Width)
		maxY = max(maxY, rect.Y+rect.Height)

		if minX == rect.X && minY == rect.Y {
			topLeft = i
		}
		if maxX == rect.X+rect.Width && minY == rect.Y {
			topRight = i
		}
		if minX == rect.X && maxY == rect.Y+rect.Height {
			bottomLeft = i
		}
		if maxX == rect.X+rect.Width && maxY == rect.Y+rect.Height {
			bottomRight = i
		}
	}

	if topLeft == bottomRight {
		return nil, monitor.Rectangle{}, errNotTiled
	}

	spanW, spanH := maxX-minX, maxY-minY
	var origin int
	width, height := spanW, spanH
	switch output.transform {
	case monitor.TransformNormal:
		origin = topLeft
	case monitor.Transform90:
		origin = bottomLeft
		width, height = spanH, spanW
	case monitor.Transform180:
		origin = bottomRight
	case monitor.Transform270:
		origin = topRight
		width, height = spanH, spanW
	case monitor.TransformFlipped:
		origin = bottomLeft
	case monitor.TransformFlipped90:
		origin = bottomRight
		width, height = spanH, spanW
	case monitor.TransformFlipped180:
		origin = topRight
	case monitor.TransformFlipped270:
		origin = topLeft
		width, height = spanH, spanW
	}

	if origin != idx {
		return nil, monitor.Rectangle{}, errNotMainTile
	}

	mc, err := newMonitorConfig(key, output, width, height)
	if err != nil {
		return nil, monitor.Rectangle{}, err
	}
	return mc, monitor.Rectangle{X: minX, Y: minY, Width: spanW, Height: spanH}, nil
}

func deriveMonitorConfig(key outputKey, output outputConfig) (*monitorconfig.MonitorConfig, monitor.Rectangle, error) {
	width, height := output.rect.Width, output.rect.Height
	if output.transform.IsRotated() {
		width, height = height, width
	}
	mc, err := newMonitorConfig(key, output, width, height)
	if err != nil {
		return nil, monitor.Rectangle{}, err
	}
	return mc, output.rect, nil
}

// ensureLogicalMonitor returns the logical monitor covering layout, adding one
// that takes its flags from output if there is none.
func ensureLogicalMonitor(logicalMonitors *[]*monitorconfig.LogicalMonitorConfig, output outputConfig, layout monitor.Rectangle) *monitorconfig.LogicalMonitorConfig {
	for _, lm := range *logicalMonitors {
		if lm.Layout.Equal(layout) {
			return lm
		}
	}
	lm := &monitorconfig.LogicalMonitorConfig{
		Layout:         layout,
		Transform:      output.transform,
		Scale:          1,
		IsPrimary:      output.isPrimary,
		IsPresentation: output.isPresentation,
	}
	*logicalMonitors = append(*logicalMonitors, lm)
	return lm
}
