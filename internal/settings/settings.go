// Package settings loads process configuration for the minesweeper server
// from an optional YAML file, MINES_* environment variables and defaults.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wricardo/mcp-training/minesweeper/internal/logging"
)

// DefaultPath is the settings file looked up when none is given
const DefaultPath = "configs/server.yaml"

// EnvPrefix prefixes every environment override
const EnvPrefix = "MINES"

type HTTPConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type MySQLConfig struct {
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	MaxConn int    `yaml:"max_conn" mapstructure:"max_conn"`
	MaxIdle int    `yaml:"max_idle" mapstructure:"max_idle"`
}

type MongoConfig struct {
	URI             string `yaml:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" mapstructure:"database"`
	Collection      string `yaml:"collection" mapstructure:"collection"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s" mapstructure:"connect_timeout_s"`
}

// RecordsConfig selects the leaderboard backend: memory, file, mysql or mongo
type RecordsConfig struct {
	Driver string      `yaml:"driver" mapstructure:"driver"`
	File   string      `yaml:"file" mapstructure:"file"`
	MySQL  MySQLConfig `yaml:"mysql" mapstructure:"mysql"`
	Mongo  MongoConfig `yaml:"mongo" mapstructure:"mongo"`
}

type SessionsConfig struct {
	Persist         bool          `yaml:"persist" mapstructure:"persist"`
	Dir             string        `yaml:"dir" mapstructure:"dir"`
	MaxAge          time.Duration `yaml:"max_age" mapstructure:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

type PresetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

type NgrokConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Domain  string `yaml:"domain" mapstructure:"domain"`
}

type PlayerConfig struct {
	DefaultName string `yaml:"default_name" mapstructure:"default_name"`
}

// Settings is the full process configuration
type Settings struct {
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Log      logging.Config `yaml:"log" mapstructure:"log"`
	Records  RecordsConfig  `yaml:"records" mapstructure:"records"`
	Sessions SessionsConfig `yaml:"sessions" mapstructure:"sessions"`
	Presets  PresetsConfig  `yaml:"presets" mapstructure:"presets"`
	Ngrok    NgrokConfig    `yaml:"ngrok" mapstructure:"ngrok"`
	Player   PlayerConfig   `yaml:"player" mapstructure:"player"`
}

// Loader owns the viper instance and the last decoded settings
type Loader struct {
	v    *viper.Viper
	path string

	mu      sync.RWMutex
	current Settings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "localhost")
	v.SetDefault("http.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.compress", false)
	v.SetDefault("log.dev", false)
	v.SetDefault("log.json", false)
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 14)
	v.SetDefault("records.driver", "file")
	v.SetDefault("records.file", "records.json")
	v.SetDefault("records.mysql.dsn", "")
	v.SetDefault("records.mysql.max_conn", 10)
	v.SetDefault("records.mysql.max_idle", 5)
	v.SetDefault("records.mongo.uri", "")
	v.SetDefault("records.mongo.database", "minesweeper")
	v.SetDefault("records.mongo.collection", "records")
	v.SetDefault("records.mongo.connect_timeout_s", 3)
	v.SetDefault("sessions.persist", false)
	v.SetDefault("sessions.dir", "./sessions")
	v.SetDefault("sessions.max_age", 24*time.Hour)
	v.SetDefault("sessions.cleanup_interval", time.Hour)
	v.SetDefault("presets.dir", "./presets")
	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.domain", "")
	v.SetDefault("player.default_name", "Player")
}

// Load reads settings from path. A missing file at the default path is
// not an error; defaults and environment overrides still apply. A .env
// file in the working directory is loaded first when present.
func Load(path string) (*Loader, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	l := &Loader{v: v}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
		l.path = path
	} else if explicit {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}

	if err := l.decode(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) decode() error {
	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	l.mu.Lock()
	l.current = s
	l.mu.Unlock()
	return nil
}

// Settings returns a copy of the current settings
func (l *Loader) Settings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Path returns the settings file in use, empty when running on defaults
func (l *Loader) Path() string {
	return l.path
}

// Watch re-reads the settings file when it changes and calls onChange with
// the new settings. It is a no-op without a settings file.
func (l *Loader) Watch(onChange func(Settings)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := l.decode(); err != nil {
			return
		}
		if onChange != nil {
			onChange(l.Settings())
		}
	})
	l.v.WatchConfig()
}

// Addr returns host:port for the HTTP listener
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.HTTP.Host, s.HTTP.Port)
}
