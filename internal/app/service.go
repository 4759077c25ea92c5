// Package app wires configuration, hardware, store, migration and manager
// into the operations the command line exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"

	"monitorcfg/internal/audit"
	"monitorcfg/internal/config"
	"monitorcfg/internal/doctor"
	"monitorcfg/internal/logging"
	"monitorcfg/internal/manager"
	"monitorcfg/internal/metrics"
	"monitorcfg/internal/migrate"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
	"monitorcfg/internal/store"
	"monitorcfg/internal/watch"
)

// ErrNoUsableConfig is returned by Apply when no strategy yields a config
// that verifies and fits the hardware.
var ErrNoUsableConfig = errors.New("no usable monitor configuration")

type Options struct {
	ConfigPath string
	// HardwarePath overrides paths.hardware from the config.
	HardwarePath string
	// LogLevel overrides logging.level from the config.
	LogLevel string
	// LogOutput receives log records; nil means os.Stderr.
	LogOutput io.Writer
}

type Service struct {
	ConfigPath string
	Config     config.Config
	Paths      config.PathsConfig

	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Audit    *audit.Logger
	Hardware *monitor.Hardware
	Store    *store.ConfigStore
	Migrator *migrate.Migrator
	Manager  *manager.Manager
	Doctor   *doctor.Service

	metricsTextfile string
}

// New opens the service and loads the hardware snapshot, the store and the
// manager on top of it.
func New(opts Options) (*Service, error) {
	s, err := Open(opts)
	if err != nil {
		return nil, err
	}
	hw, err := monitor.LoadSnapshot(s.Paths.Hardware, s.Logger)
	if err != nil {
		return nil, err
	}
	s.Hardware = hw
	s.openStore()
	s.Manager = manager.New(hw, s.Store, manager.Options{
		Logger:   s.Logger,
		Metrics:  s.Metrics,
		OnChange: s.recordChange,
	})
	return s, nil
}

// Open prepares config, logging, metrics, audit and diagnostics only. The
// hardware snapshot is not read.
func Open(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("DOC_CONFIG_PATHS: %w", err)
	}
	if opts.HardwarePath != "" {
		paths.Hardware = opts.HardwarePath
	}
	auditPath, err := config.ResolveAuditPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("DOC_CONFIG_PATHS: %w", err)
	}
	textfile, err := config.ResolveMetricsTextfile(cfg)
	if err != nil {
		return nil, fmt.Errorf("DOC_CONFIG_PATHS: %w", err)
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger := logging.New(logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: opts.LogOutput,
	})
	return &Service{
		ConfigPath:      configPath,
		Config:          cfg,
		Paths:           paths,
		Logger:          logger,
		Metrics:         metrics.New(),
		Audit:           audit.New(auditPath),
		Doctor:          &doctor.Service{ConfigPath: configPath, HardwarePath: opts.HardwarePath, Logger: logger},
		metricsTextfile: textfile,
	}, nil
}

// openStore reads the user file, or the custom file when one is configured.
// Without a user file, the legacy file is migrated into a new one.
func (s *Service) openStore() {
	if s.Paths.CustomStore != "" {
		s.Store = store.New(s.Hardware, store.Options{Logger: s.Logger, Metrics: s.Metrics})
		s.Migrator = migrate.New(s.Hardware, s.Store, migrate.Options{Logger: s.Logger, Metrics: s.Metrics})
		err := s.Store.SetCustom(s.Paths.CustomStore)
		if err != nil {
			s.Logger.Warn("Failed to read custom monitors config file", "path", s.Paths.CustomStore, "error", err)
		}
		s.record(audit.ActionStoreLoad, "", err, map[string]string{"path": s.Paths.CustomStore})
		return
	}

	_, statErr := os.Stat(s.Paths.Store)
	userFileExists := statErr == nil
	s.Store = store.New(s.Hardware, store.Options{UserFile: s.Paths.Store, Logger: s.Logger, Metrics: s.Metrics})
	s.Migrator = migrate.New(s.Hardware, s.Store, migrate.Options{Logger: s.Logger, Metrics: s.Metrics})
	if userFileExists {
		s.record(audit.ActionStoreLoad, "", nil, map[string]string{
			"path":    s.Paths.Store,
			"configs": fmt.Sprint(s.Store.Count()),
		})
		return
	}
	if _, err := os.Stat(s.Paths.Legacy); err != nil {
		return
	}
	res, err := s.Migrator.MigrateUserFile(s.Paths.Legacy, s.Paths.LegacyBackup)
	if err != nil {
		s.Logger.Warn("Failed to migrate old monitors config file", "path", s.Paths.Legacy, "error", err)
	}
	s.record(audit.ActionMigrate, "", err, migrationFields(s.Paths.Legacy, res))
}

func migrationFields(path string, res migrate.Result) map[string]string {
	return map[string]string{
		"path":     path,
		"migrated": fmt.Sprint(res.Migrated),
		"failed":   fmt.Sprint(res.Failed),
		"invalid":  fmt.Sprint(res.Invalid),
	}
}

func (s *Service) record(action audit.Action, key string, err error, fields map[string]string) {
	if auditErr := s.Audit.Record(action, key, err, fields); auditErr != nil {
		s.Logger.Warn("failed to write audit event", "action", action, "error", auditErr)
	}
}

func (s *Service) recordChange(current, previous *monitorconfig.MonitorsConfig) {
	fields := map[string]string{}
	if previous != nil {
		fields["previous"] = previous.Key.String()
	}
	key := ""
	if current != nil {
		key = current.Key.String()
	}
	s.record(audit.ActionSetCurrent, key, nil, fields)
}

// Close flushes the metrics textfile when one is configured.
func (s *Service) Close() error {
	return s.Metrics.WriteTextfile(s.metricsTextfile)
}

func (s *Service) SaveConfig() error {
	return config.Save(s.ConfigPath, s.Config)
}

func (s *Service) ConfigGet(key string) (string, error) {
	return config.Get(s.Config, key)
}

// ConfigSet updates one setting and saves the config file. It takes effect
// on the next run.
func (s *Service) ConfigSet(key, value string) error {
	if err := config.Set(&s.Config, key, value); err != nil {
		return err
	}
	return s.SaveConfig()
}

// Stored returns the stored config for the connected monitors.
func (s *Service) Stored() (*monitorconfig.MonitorsConfig, bool) {
	return s.Manager.GetStored()
}

// Create builds a config with strategy. It fails when the strategy has
// nothing to offer for the hardware.
func (s *Service) Create(strategy manager.Strategy) (*monitorconfig.MonitorsConfig, error) {
	cfg := s.Manager.Create(strategy)
	if cfg == nil {
		return nil, fmt.Errorf("APP_NO_CONFIG: %s strategy produced no configuration for %s", strategy, s.Manager.CurrentKey())
	}
	return cfg, nil
}

// Assign builds a config with strategy, verifies it and assigns CRTCs.
func (s *Service) Assign(strategy manager.Strategy) (Assignment, error) {
	cfg, err := s.Create(strategy)
	if err != nil {
		return Assignment{}, err
	}
	if err := monitorconfig.Verify(cfg, s.Hardware); err != nil {
		return Assignment{}, err
	}
	crtcs, outputs, err := s.Manager.Assign(cfg)
	if err != nil {
		return Assignment{}, err
	}
	s.debugDump("assigned monitor configuration", crtcs, outputs)
	return newAssignment(strategy, cfg, crtcs, outputs), nil
}

// Apply tries strategies in order until one yields a config that verifies and
// can be assigned, makes it current and, if save is set, stores it. With no
// strategies the default chain is used.
func (s *Service) Apply(strategies []manager.Strategy, save bool) (Assignment, error) {
	if len(strategies) == 0 {
		strategies = manager.Strategies
	}
	for _, strategy := range strategies {
		cfg := s.Manager.Create(strategy)
		if cfg == nil {
			s.Logger.Debug("no configuration from strategy", "strategy", strategy)
			continue
		}
		if err := monitorconfig.Verify(cfg, s.Hardware); err != nil {
			s.Logger.Warn("Failed to use monitor configuration", "strategy", strategy, "error", err)
			continue
		}
		crtcs, outputs, err := s.Manager.Assign(cfg)
		if err != nil {
			s.Logger.Warn("Failed to use monitor configuration", "strategy", strategy, "error", err)
			continue
		}
		s.debugDump("applying monitor configuration", crtcs, outputs)
		s.Manager.SetCurrent(cfg)
		if save {
			err := s.Manager.SaveCurrent()
			s.record(audit.ActionSaveCurrent, cfg.Key.String(), err, map[string]string{"strategy": string(strategy)})
			if err != nil {
				return Assignment{}, err
			}
		}
		return newAssignment(strategy, cfg, crtcs, outputs), nil
	}
	return Assignment{}, fmt.Errorf("APP_APPLY: %w for %s", ErrNoUsableConfig, s.Manager.CurrentKey())
}

// Verify reads a store file into a scratch store and returns how many
// configurations it holds.
func (s *Service) Verify(path string) (int, error) {
	scratch := store.New(s.Hardware, store.Options{Logger: s.Logger})
	if err := scratch.LoadFile(path); err != nil {
		return 0, err
	}
	return scratch.Count(), nil
}

// StoreConfigs returns every stored config ordered by key.
func (s *Service) StoreConfigs() []*monitorconfig.MonitorsConfig {
	return s.Store.Configs()
}

func (s *Service) StoreDump(w io.Writer) error {
	_, err := s.Store.WriteTo(w)
	return err
}

// Migrate reads a legacy file into the store. An empty path migrates the
// configured legacy file, backing it up first.
func (s *Service) Migrate(path string) (migrate.Result, error) {
	var (
		res migrate.Result
		err error
	)
	if path == "" {
		path = s.Paths.Legacy
		res, err = s.Migrator.MigrateUserFile(path, s.Paths.LegacyBackup)
	} else {
		res, err = s.Migrator.MigrateFile(path)
	}
	s.record(audit.ActionMigrate, "", err, migrationFields(path, res))
	return res, err
}

// Watch reloads the store whenever its file changes, until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	path := s.Store.Path()
	if path == "" {
		return fmt.Errorf("WATCH_INIT: store has no backing file")
	}
	debounce, err := config.WatchDebounce(s.Config)
	if err != nil {
		return err
	}
	w := watch.New(path, s.Store.Reload, watch.Options{
		Logger:   s.Logger,
		Debounce: debounce,
		OnReload: func(err error) {
			s.record(audit.ActionStoreLoad, "", err, map[string]string{
				"path":    path,
				"configs": fmt.Sprint(s.Store.Count()),
			})
			if werr := s.Close(); werr != nil {
				s.Logger.Warn("failed to write metrics textfile", "error", werr)
			}
		},
	})
	return w.Run(ctx)
}

func (s *Service) debugDump(msg string, crtcs []*manager.CrtcInfo, outputs []*manager.OutputInfo) {
	if !s.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.Logger.Debug(msg, "crtcs", spew.Sdump(crtcs), "outputs", spew.Sdump(outputs))
}

func (s *Service) DoctorRun() doctor.Report {
	return s.Doctor.Run()
}
