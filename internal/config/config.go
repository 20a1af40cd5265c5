// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/vintel/internal/starmap"
)

// DefaultLocalRooms are the names the client gives the local channel
var DefaultLocalRooms = []string{"Local", "Lokal"}

const (
	DefaultCachePath     = "~/.vintel/cache.sqlite3"
	DefaultPollInterval  = time.Second
	DefaultMaxLogAge     = 24 * time.Hour
	DefaultAvatarSpacing = 300 * time.Millisecond
	DefaultKOSEndpoint   = "http://kos.cva-eve.org/api/"
	DefaultESIURL        = "https://esi.evetech.net/latest"
	DefaultImageURL      = "https://images.evetech.net"
)

// Config for the intel watcher
type Config struct {
	LogDir        string        `yaml:"log_dir"`
	Rooms         []string      `yaml:"rooms"`
	LocalRooms    []string      `yaml:"local_rooms"`
	Region        string        `yaml:"region"`
	MapDir        string        `yaml:"map_dir"`
	MapFile       string        `yaml:"map_file"` // overrides region/map_dir
	AlarmDistance int           `yaml:"alarm_distance"`
	CachePath     string        `yaml:"cache_path"`
	HistoryLimit  int           `yaml:"history_limit"` // per room, 0 keeps all
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxLogAge     time.Duration `yaml:"max_log_age"`
	ListenAddr    string        `yaml:"listen_addr"` // empty disables the status API
	TLSCert       string        `yaml:"tls_cert"`
	TLSKey        string        `yaml:"tls_key"`
	KOSEndpoints  []string      `yaml:"kos_endpoints"` // fallback chain
	ESIURL        string        `yaml:"esi_url"`
	ImageURL      string        `yaml:"image_url"`
	AvatarSpacing time.Duration `yaml:"avatar_spacing"`
	APIKey        string        `yaml:"-"` // status API auth, from env only
}

// Load loads config from YAML file with env overrides
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses the YAML file and applies env overrides without filling
// defaults or validating. An empty path yields a config built from the
// environment alone.
func Read(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Env overrides
	if key := os.Getenv("VINTEL_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if dir := os.Getenv("VINTEL_LOG_DIR"); dir != "" {
		cfg.LogDir = dir
	}
	if p := os.Getenv("VINTEL_CACHE_PATH"); p != "" {
		cfg.CachePath = p
	}
	return &cfg, nil
}

// Finish fills defaults, expands paths and validates. Load calls it; the
// CLI calls it again after applying flags.
func (c *Config) Finish() error {
	if err := c.Defaults(); err != nil {
		return err
	}
	return c.validate()
}

// Defaults fills unset fields and expands paths without requiring the
// fields only the watcher needs
func (c *Config) Defaults() error {
	if len(c.LocalRooms) == 0 {
		c.LocalRooms = DefaultLocalRooms
	}
	if c.CachePath == "" {
		c.CachePath = DefaultCachePath
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxLogAge <= 0 {
		c.MaxLogAge = DefaultMaxLogAge
	}
	if c.HistoryLimit < 0 {
		c.HistoryLimit = 0
	}
	if len(c.KOSEndpoints) == 0 {
		c.KOSEndpoints = []string{DefaultKOSEndpoint}
	}
	if c.ESIURL == "" {
		c.ESIURL = DefaultESIURL
	}
	if c.ImageURL == "" {
		c.ImageURL = DefaultImageURL
	}
	if c.AvatarSpacing <= 0 {
		c.AvatarSpacing = DefaultAvatarSpacing
	}

	var err error
	if c.CachePath, err = expandPath(c.CachePath); err != nil {
		return fmt.Errorf("cache_path: %w", err)
	}
	if c.LogDir != "" {
		if c.LogDir, err = expandPath(c.LogDir); err != nil {
			return fmt.Errorf("log_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.LogDir == "" {
		return errors.New("log_dir is required")
	}
	if len(c.Rooms) == 0 {
		return errors.New("at least one intel room is required")
	}
	if c.MapFile == "" && c.Region == "" {
		return errors.New("either map_file or region is required")
	}
	if c.AlarmDistance < 0 {
		return fmt.Errorf("alarm_distance must be >= 0, got %d", c.AlarmDistance)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls_cert and tls_key must be set together")
	}
	return nil
}

// MapPath returns the topology file to load
func (c *Config) MapPath() string {
	if c.MapFile != "" {
		return c.MapFile
	}
	return starmap.MapPath(c.MapDir, c.Region)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
