// Package doctor checks that the files monitorcfg depends on are usable.
package doctor

import (
	"log/slog"
	"os"

	"monitorcfg/internal/config"
	"monitorcfg/internal/manager"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/store"
)

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy  bool      `json:"healthy"`
	Findings []Finding `json:"findings"`
	Monitors []string  `json:"monitors,omitempty"`
	Stored   int       `json:"stored"`
}

type Service struct {
	ConfigPath string
	// HardwarePath overrides the snapshot path from the config.
	HardwarePath string
	Logger       *slog.Logger
}

func (r *Report) add(code, level, message string) {
	r.Findings = append(r.Findings, Finding{Code: code, Level: level, Message: message})
}

func (s *Service) Run() Report {
	report := Report{Findings: []Finding{}}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := config.DefaultConfig()
	if _, err := os.Stat(s.ConfigPath); err != nil {
		report.add("DOC_CONFIG_MISSING", "warn", err.Error()+"; using defaults")
	} else if loaded, err := config.Load(s.ConfigPath); err != nil {
		report.add("DOC_CONFIG_INVALID", "error", err.Error())
	} else {
		cfg = loaded
	}

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		report.add("DOC_CONFIG_PATHS", "error", err.Error())
		return report.finish()
	}
	if s.HardwarePath != "" {
		paths.Hardware = s.HardwarePath
	}

	hw, err := monitor.LoadSnapshot(paths.Hardware, logger)
	if err != nil {
		report.add("DOC_HARDWARE_INVALID", "error", err.Error())
		return report.finish()
	}
	for _, mon := range hw.Monitors() {
		report.Monitors = append(report.Monitors, mon.Spec().String())
	}
	if len(report.Monitors) == 0 {
		report.add("DOC_HARDWARE_EMPTY", "warn", "no monitors connected in "+paths.Hardware)
	}

	st := store.New(hw, store.Options{Logger: logger})
	storePath := paths.Store
	if paths.CustomStore != "" {
		storePath = paths.CustomStore
	}
	storeExists := fileExists(storePath)
	if storeExists {
		if err := st.LoadFile(storePath); err != nil {
			report.add("DOC_STORE_INVALID", "error", err.Error())
		}
	} else if paths.CustomStore != "" {
		report.add("DOC_STORE_MISSING", "error", "custom store "+storePath+" does not exist")
	}
	report.Stored = st.Count()

	if !storeExists && paths.CustomStore == "" && fileExists(paths.Legacy) {
		report.add("DOC_LEGACY_PENDING", "warn", paths.Legacy+" has not been migrated yet")
	}

	if len(report.Monitors) > 0 {
		mgr := manager.New(hw, st, manager.Options{Logger: logger})
		if _, ok := st.Lookup(mgr.CurrentKey()); !ok {
			report.add("DOC_NO_STORED_CONFIG", "warn", "no stored configuration for "+mgr.CurrentKey().String())
		}
	}
	return report.finish()
}

func (r Report) finish() Report {
	r.Healthy = true
	for _, f := range r.Findings {
		if f.Level == "error" {
			r.Healthy = false
			break
		}
	}
	return r
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
