package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/minesweeper/game/engine"
	"github.com/wricardo/mcp-training/minesweeper/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

const (
	// DefaultPreset is used when a session is created without a preset name
	DefaultPreset = "easy"

	MinSide = 2
	MaxSide = 64
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// builtinPresets are always available; files with the same name override them
var builtinPresets = map[string]service.Preset{
	"easy":   {Name: "easy", Label: "Easy", Description: "10x10 board with 10 mines", Rows: 10, Cols: 10, Mines: 10},
	"medium": {Name: "medium", Label: "Medium", Description: "12x12 board with 20 mines", Rows: 12, Cols: 12, Mines: 20},
	"hard":   {Name: "hard", Label: "Hard", Description: "14x14 board with 25 mines", Rows: 14, Cols: 14, Mines: 25},
}

// Manager handles difficulty preset loading and caching
type Manager struct {
	configDir     string
	defaultConfig *service.Preset
	configs       map[string]*service.Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager. An empty configDir serves the
// built-in presets only; a non-empty one must exist.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*service.Preset),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// ValidatePreset checks that a preset describes a playable board
func ValidatePreset(p *service.Preset) error {
	if p == nil {
		return fmt.Errorf("%w: preset is nil", ErrInvalidConfig)
	}
	if strings.TrimSpace(p.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidConfig)
	}
	if p.Rows < MinSide || p.Rows > MaxSide {
		return fmt.Errorf("%w: rows must be between %d and %d, got %d", ErrInvalidConfig, MinSide, MaxSide, p.Rows)
	}
	if p.Cols < MinSide || p.Cols > MaxSide {
		return fmt.Errorf("%w: cols must be between %d and %d, got %d", ErrInvalidConfig, MinSide, MaxSide, p.Cols)
	}
	if err := engine.ValidateDimensions(p.Rows, p.Cols, p.Mines); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".json")
}

// LoadConfig loads a preset by name
func (m *Manager) LoadConfig(name string) (*service.Preset, error) {
	name = normalizeName(name)
	if name == "" {
		return m.GetDefault(), nil
	}

	m.mu.RLock()
	if preset, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*service.Preset, error) {
	if preset, exists := m.configs[name]; exists {
		return preset, nil
	}

	preset, err := m.readFile(name)
	if errors.Is(err, ErrConfigNotFound) {
		builtin, ok := builtinPresets[name]
		if !ok {
			return nil, ErrConfigNotFound
		}
		preset = &builtin
	} else if err != nil {
		return nil, err
	}

	m.configs[name] = preset
	return preset, nil
}

func (m *Manager) readFile(name string) (*service.Preset, error) {
	if m.configDir == "" || !validName.MatchString(name) {
		return nil, ErrConfigNotFound
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var preset service.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, name, err)
	}
	preset.Name = name
	if err := ValidatePreset(&preset); err != nil {
		return nil, err
	}
	return &preset, nil
}

// ListConfigs returns information about all available presets, smallest
// board first
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	names := map[string]bool{}
	for name := range builtinPresets {
		names[name] = true
	}

	if m.configDir != "" {
		entries, err := os.ReadDir(m.configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read config directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			names[normalizeName(entry.Name())] = true
		}
	}

	var infos []*service.ConfigInfo
	for name := range names {
		preset, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid presets
			continue
		}
		info := &service.ConfigInfo{
			ConfigID:    name,
			Label:       preset.Label,
			Description: preset.Description,
			Rows:        preset.Rows,
			Cols:        preset.Cols,
			Mines:       preset.Mines,
			Density:     engine.MineDensity(preset.Rows, preset.Cols, preset.Mines),
		}
		if m.hasFile(name) {
			info.Filename = name + ".json"
		} else {
			info.BuiltIn = true
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		ci, cj := infos[i].Rows*infos[i].Cols, infos[j].Rows*infos[j].Cols
		if ci != cj {
			return ci < cj
		}
		if infos[i].Mines != infos[j].Mines {
			return infos[i].Mines < infos[j].Mines
		}
		return infos[i].ConfigID < infos[j].ConfigID
	})
	return infos, nil
}

func (m *Manager) hasFile(name string) bool {
	if m.configDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(m.configDir, name+".json"))
	return err == nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *service.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	preset, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = preset
	return nil
}

// RefreshCache drops cached presets so files are re-read
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*service.Preset)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

func (m *Manager) loadDefaultConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	preset, err := m.loadLocked(DefaultPreset)
	if err != nil {
		return err
	}
	m.defaultConfig = preset
	return nil
}

// SaveConfig validates a preset and writes it to the preset directory
func (m *Manager) SaveConfig(name string, preset *service.Preset) error {
	name = normalizeName(name)
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: invalid preset name %q", ErrInvalidConfig, name)
	}
	if m.configDir == "" {
		return fmt.Errorf("%w: no preset directory configured", ErrInvalidConfig)
	}
	if err := ValidatePreset(preset); err != nil {
		return err
	}

	saved := *preset
	saved.Name = name

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = &saved
	if name == DefaultPreset {
		m.defaultConfig = &saved
	}
	m.mu.Unlock()

	return nil
}

// Builtin returns a copy of a built-in preset
func Builtin(name string) (service.Preset, bool) {
	p, ok := builtinPresets[normalizeName(name)]
	return p, ok
}
