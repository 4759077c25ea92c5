package store

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"monitorcfg/internal/fsutil"
	"monitorcfg/internal/metrics"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

// Hardware is what the store needs to know about the display hardware to
// validate configurations it reads.
type Hardware interface {
	monitorconfig.Capabilities
	DefaultLayoutMode() monitor.LayoutMode
}

type Options struct {
	// UserFile is read on construction and rewritten on every Add.
	UserFile string
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// ConfigStore holds monitor configurations keyed by the set of monitors they
// apply to.
type ConfigStore struct {
	hw      Hardware
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	configs    map[string]*monitorconfig.MonitorsConfig
	userFile   string
	customFile string
}

// New creates a store and reads the user file if it exists. A user file that
// fails to load is reported and leaves the store empty.
func New(hw Hardware, opts Options) *ConfigStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &ConfigStore{
		hw:       hw,
		logger:   logger,
		metrics:  opts.Metrics,
		configs:  map[string]*monitorconfig.MonitorsConfig{},
		userFile: opts.UserFile,
	}
	if s.userFile != "" {
		if _, err := os.Stat(s.userFile); err == nil {
			if err := s.LoadFile(s.userFile); err != nil {
				logger.Warn("Failed to read monitors config file", "path", s.userFile, "error", err)
			}
		}
	}
	return s
}

func (s *ConfigStore) Lookup(key monitorconfig.Key) (*monitorconfig.MonitorsConfig, bool) {
	s.mu.RLock()
	cfg, ok := s.configs[key.ID()]
	s.mu.RUnlock()
	s.metrics.Lookup(ok)
	return cfg, ok
}

// Add inserts cfg, replacing any config with an equal key. Unless a custom
// file is active the store is then written to the user file; a failed write
// is logged.
func (s *ConfigStore) Add(cfg *monitorconfig.MonitorsConfig) {
	s.mu.Lock()
	s.configs[cfg.Key.ID()] = cfg
	persist := s.userFile != "" && s.customFile == ""
	count := len(s.configs)
	s.mu.Unlock()
	s.metrics.SetStoreConfigs(count)

	if persist {
		if err := s.Save(); err != nil {
			s.logger.Warn("Saving monitor configuration failed", "path", s.userFile, "error", err)
		}
	}
}

// Remove drops the config stored under key.
func (s *ConfigStore) Remove(key monitorconfig.Key) bool {
	s.mu.Lock()
	id := key.ID()
	_, ok := s.configs[id]
	delete(s.configs, id)
	count := len(s.configs)
	s.mu.Unlock()
	s.metrics.SetStoreConfigs(count)
	return ok
}

func (s *ConfigStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}

// Configs returns every stored config ordered by key.
func (s *ConfigStore) Configs() []*monitorconfig.MonitorsConfig {
	s.mu.RLock()
	ids := make([]string, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*monitorconfig.MonitorsConfig, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.configs[id])
	}
	s.mu.RUnlock()
	return out
}

// Load parses a document and merges its configs into the store. On any error
// the store is left unchanged.
func (s *ConfigStore) Load(r io.Reader) error {
	configs, err := parseDocument(r, s.hw)
	s.metrics.Load(err)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, cfg := range configs {
		s.configs[cfg.Key.ID()] = cfg
	}
	count := len(s.configs)
	s.mu.Unlock()
	s.metrics.SetStoreConfigs(count)
	return nil
}

func (s *ConfigStore) LoadFile(path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		s.metrics.Load(err)
		return fmt.Errorf("STORE_IO: %w", err)
	}
	return s.Load(bytes.NewReader(blob))
}

// SetCustom empties the store and reads path instead of the user file. While
// a custom file is active, Add no longer writes the user file. On failure the
// store stays empty.
func (s *ConfigStore) SetCustom(path string) error {
	s.mu.Lock()
	s.customFile = path
	s.configs = map[string]*monitorconfig.MonitorsConfig{}
	s.mu.Unlock()
	s.metrics.SetStoreConfigs(0)
	return s.LoadFile(path)
}

// Path is the file backing the store: the custom file if set, else the user file.
func (s *ConfigStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.customFile != "" {
		return s.customFile
	}
	return s.userFile
}

// Reload replaces the store content with the current content of Path. A file
// that fails to load leaves the store unchanged.
func (s *ConfigStore) Reload() error {
	path := s.Path()
	if path == "" {
		return nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		s.metrics.Load(err)
		return fmt.Errorf("STORE_IO: %w", err)
	}
	configs, err := parseDocument(bytes.NewReader(blob), s.hw)
	s.metrics.Load(err)
	if err != nil {
		return err
	}
	fresh := make(map[string]*monitorconfig.MonitorsConfig, len(configs))
	for _, cfg := range configs {
		fresh[cfg.Key.ID()] = cfg
	}
	s.mu.Lock()
	s.configs = fresh
	s.mu.Unlock()
	s.metrics.SetStoreConfigs(len(fresh))
	return nil
}

// Marshal renders the whole store as a document, configs ordered by key.
func (s *ConfigStore) Marshal() []byte {
	return marshalConfigs(s.Configs())
}

// Save writes the store to the user file.
func (s *ConfigStore) Save() error {
	s.mu.RLock()
	path := s.userFile
	s.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("STORE_IO: no user file configured")
	}
	if err := fsutil.AtomicWrite(path, s.Marshal(), 0o644); err != nil {
		return fmt.Errorf("STORE_IO: %w", err)
	}
	return nil
}

// WriteTo writes the document form of the store to w.
func (s *ConfigStore) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Marshal())
	return int64(n), err
}
