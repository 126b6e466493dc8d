package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/voltplay/driveworld/game/engine"
)

var (
	ErrConfigNotFound = errors.New("world configuration not found")
	ErrInvalidConfig  = errors.New("invalid world configuration")
)

// extensions lists the preset file formats in lookup order.
var extensions = []string{".json", ".yaml", ".yml"}

// WorldInfo summarizes one preset for listings.
type WorldInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
}

// Manager loads and caches world configuration presets from a directory.
// Presets may be JSON or YAML; the config id is the filename without its
// extension. A missing directory is not an error — the built-in default
// world is always available.
type Manager struct {
	configDir     string
	defaultConfig *engine.WorldConfig
	configs       map[string]*engine.WorldConfig
	mu            sync.RWMutex
}

// NewManager creates a configuration manager over the given directory.
func NewManager(configDir string) *Manager {
	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.WorldConfig),
	}
	m.loadDefaultConfig()
	return m
}

// LoadConfig loads a preset by config id.
func (m *Manager) LoadConfig(name string) (*engine.WorldConfig, error) {
	m.mu.RLock()
	if cfg, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cfg, exists := m.configs[name]; exists {
		return cfg, nil
	}

	path, err := m.resolvePath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg engine.WorldConfig
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := engine.ValidateWorldConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = &cfg
	return &cfg, nil
}

// resolvePath finds the preset file for a config id, trying each supported
// extension. Names that already carry an extension are used as-is.
func (m *Manager) resolvePath(name string) (string, error) {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			path := filepath.Join(m.configDir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
			return "", ErrConfigNotFound
		}
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// ListConfigs returns information about every valid preset on disk.
func (m *Manager) ListConfigs() ([]*WorldInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*WorldInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		supported := false
		for _, e := range extensions {
			if ext == e {
				supported = true
				break
			}
		}
		if !supported {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ext)
		cfg, err := m.LoadConfig(name)
		if err != nil {
			continue // skip invalid presets
		}

		infos = append(infos, &WorldInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        cfg.Name,
			Description: cfg.Description,
			Rows:        cfg.Rows,
			Cols:        cfg.Cols,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ConfigID < infos[j].ConfigID })
	return infos, nil
}

// GetDefault returns the default world configuration.
func (m *Manager) GetDefault() *engine.WorldConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault switches the default world by config id.
func (m *Manager) SetDefault(name string) error {
	cfg, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = cfg
	return nil
}

// loadDefaultConfig prefers a preset literally named "default", then the
// built-in stock world.
func (m *Manager) loadDefaultConfig() {
	if cfg, err := m.LoadConfig("default"); err == nil {
		m.mu.Lock()
		m.defaultConfig = cfg
		m.mu.Unlock()
		return
	}
	m.mu.Lock()
	m.defaultConfig = engine.DefaultWorldConfig()
	m.mu.Unlock()
}

// RefreshCache drops all cached presets and reloads the default world.
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.WorldConfig)
	m.mu.Unlock()
	m.loadDefaultConfig()
}

// SaveConfig validates and writes a preset as JSON, updating the cache.
func (m *Manager) SaveConfig(name string, cfg *engine.WorldConfig) error {
	if err := engine.ValidateWorldConfig(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = cfg
	m.mu.Unlock()
	return nil
}
