package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTargetHours = 35.0
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 5 * time.Second

	dataFileName   = "time_tracking.json"
	reportsDirName = "reports"
	driversDirName = "drivers"
	indexFileName  = "status.db"
)

// Mode selects which workflow the orchestrator runs.
type Mode string

const (
	ModeLesson  Mode = "lesson"
	ModeStories Mode = "stories"
)

func (m Mode) Validate() error {
	switch m {
	case ModeLesson, ModeStories:
		return nil
	default:
		return fmt.Errorf("unknown workflow mode: %q", m)
	}
}

// Config is built once in main and handed to bootstrap by value. Nothing in
// the process reads configuration from anywhere else.
type Config struct {
	DataDir     string        `yaml:"data_dir"`
	User        string        `yaml:"user"`
	TargetHours float64       `yaml:"target_hours"`
	Mode        Mode          `yaml:"mode"`
	Lesson      string        `yaml:"lesson"`
	Stories     []string      `yaml:"stories"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Driver      DriverConfig  `yaml:"driver"`
	LogLevel    string        `yaml:"log_level"`
}

type DriverConfig struct {
	Name   string            `yaml:"name"`
	Binary string            `yaml:"binary"`
	Env    map[string]string `yaml:"env"`
}

// Load reads an optional YAML config file and applies defaults. An empty
// path yields a default config rooted at dataDir.
func Load(path, dataDir string) (Config, error) {
	cfg := Config{
		DataDir:     dataDir,
		TargetHours: DefaultTargetHours,
		Mode:        ModeLesson,
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		LogLevel:    "info",
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.TargetHours <= 0 {
		c.TargetHours = DefaultTargetHours
	}
	if c.Mode == "" {
		c.Mode = ModeLesson
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.User = strings.ToLower(strings.TrimSpace(c.User))
	return c
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	return c.Mode.Validate()
}

// ValidateRun covers the extra fields the run command needs.
func (c Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Mode == ModeStories && len(c.Stories) == 0 {
		return fmt.Errorf("stories mode requires a story list")
	}
	// A name alone is enough: bootstrap resolves it against the driver
	// manifest to find the binary.
	if c.Driver.Binary == "" && c.Driver.Name == "" {
		return fmt.Errorf("a driver binary or manifest name is required")
	}
	return nil
}

func (c Config) DataFilePath() string {
	return filepath.Join(c.DataDir, dataFileName)
}

func (c Config) ReportsDir() string {
	return filepath.Join(c.DataDir, reportsDirName)
}

func (c Config) IndexPath() string {
	return filepath.Join(c.DataDir, indexFileName)
}

func (c Config) DriversManifestPath() string {
	return filepath.Join(c.DataDir, driversDirName, "drivers.yaml")
}
