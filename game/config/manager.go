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

	"github.com/rs/zerolog/log"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Manager handles preset loading and caching
type Manager struct {
	configDir     string
	defaultPreset *Preset
	configs       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*Preset),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a preset by name
func (m *Manager) LoadConfig(name string) (*Preset, error) {
	name, ok := presetID(name)
	if !ok {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if preset, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.configs[name]; exists {
		return preset, nil
	}

	return m.readPreset(name)
}

// readPreset reads, validates and caches a preset. Callers hold m.mu.
func (m *Manager) readPreset(name string) (*Preset, error) {
	data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var preset Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := preset.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = &preset
	return &preset, nil
}

// ListConfigs returns information about all available presets
func (m *Manager) ListConfigs() ([]*PresetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*PresetInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		preset, err := m.LoadConfig(name)
		if err != nil {
			log.Debug().Err(err).Str("config", name).Msg("skipping unusable preset")
			continue
		}

		configs = append(configs, &PresetInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        preset.Name,
			Description: preset.Description,
			MaxPlayers:  preset.MaxPlayers,
			TotalTokens: preset.TotalTokens,
		})
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ConfigID < configs[j].ConfigID
	})
	return configs, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	preset, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = preset
	return nil
}

// Resolve returns the named preset, or the default one when name is empty.
func (m *Manager) Resolve(name string) (*Preset, error) {
	if name == "" {
		return m.GetDefault(), nil
	}
	return m.LoadConfig(name)
}

// RefreshCache reloads all cached presets from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*Preset)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig picks classic.json, then the first valid preset, then DefaultPreset.
func (m *Manager) loadDefaultConfig() error {
	preset, err := m.LoadConfig("classic")
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.setDefault(DefaultPreset())
			return nil
		}

		preset, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			m.setDefault(DefaultPreset())
			return nil
		}
	}

	m.setDefault(preset)
	return nil
}

func (m *Manager) setDefault(p *Preset) {
	m.mu.Lock()
	m.defaultPreset = p
	m.mu.Unlock()
}

// SaveConfig saves a preset to disk
func (m *Manager) SaveConfig(name string, preset *Preset) error {
	id, ok := presetID(name)
	if !ok {
		return fmt.Errorf("%w: bad preset name %q", ErrInvalidConfig, name)
	}
	name = id
	if err := preset.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	configPath := filepath.Join(m.configDir, name+".json")

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = preset
	m.mu.Unlock()

	return nil
}

// presetID strips the .json suffix and rejects names that would leave the directory.
func presetID(name string) (string, bool) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}
