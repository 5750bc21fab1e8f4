// Package config loads the phantom configuration file and applies
// PHANTOM_* environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTimezone     = "Asia/Dhaka"
	DefaultOptimizeCron = "0 3 * * *"
)

type Config struct {
	// Database is the SQLite file holding events, audit and history.
	Database string `yaml:"database" json:"database"`

	// Owner identifies the single local user.
	Owner     string `yaml:"owner" json:"owner"`
	OwnerName string `yaml:"owner_name" json:"owner_name"`

	// Timezone is the IANA zone requests are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone"`

	DefaultDurationMinutes int `yaml:"default_duration_minutes" json:"default_duration_minutes"`

	// HorizonDays bounds how far the optimizer may move an event.
	HorizonDays   int `yaml:"horizon_days" json:"horizon_days"`
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	StudySessions int `yaml:"study_sessions" json:"study_sessions"`
	StudyHour     int `yaml:"study_hour" json:"study_hour"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	// LogFile receives logs while the terminal UI owns stdout.
	LogFile string `yaml:"log_file" json:"log_file"`

	// OptimizeCron schedules the background re-optimization of the next
	// OptimizeDays days. "off" disables it.
	OptimizeCron string `yaml:"optimize_cron" json:"optimize_cron"`
	OptimizeDays int    `yaml:"optimize_days" json:"optimize_days"`

	// Metrics logs a counter snapshot on exit.
	Metrics bool `yaml:"metrics" json:"metrics"`
}

func Default() *Config {
	return &Config{
		Database:               "phantom.db",
		Owner:                  "local",
		Timezone:               DefaultTimezone,
		DefaultDurationMinutes: 60,
		HorizonDays:            7,
		MaxIterations:          10,
		StudySessions:          3,
		StudyHour:              19,
		LogLevel:               "info",
		LogFormat:              "json",
		LogFile:                "phantom.log",
		OptimizeCron:           DefaultOptimizeCron,
		OptimizeDays:           7,
		Metrics:                true,
	}
}

// Normalize fills zero values so older or partial files still load.
func (c *Config) Normalize() {
	d := Default()
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Owner == "" {
		c.Owner = d.Owner
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = d.DefaultDurationMinutes
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.StudySessions < 2 || c.StudySessions > 3 {
		c.StudySessions = d.StudySessions
	}
	if c.StudyHour <= 0 || c.StudyHour > 23 {
		c.StudyHour = d.StudyHour
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		c.LogFormat = d.LogFormat
	}
	if c.OptimizeCron == "" {
		c.OptimizeCron = d.OptimizeCron
	}
	if c.OptimizeDays <= 0 {
		c.OptimizeDays = d.OptimizeDays
	}
}

// CronEnabled reports whether background optimization should run.
func (c *Config) CronEnabled() bool {
	return c.OptimizeCron != "" && !strings.EqualFold(c.OptimizeCron, "off")
}

// Validate reports settings that cannot be defaulted away.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationMinutes) * time.Minute
}

// Load reads the YAML file at path. On first run the file does not exist
// yet; the defaults are written there and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".phantom-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// FromEnv returns a copy of base with PHANTOM_* overrides applied.
// Malformed or non-positive numbers are ignored.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("PHANTOM_DATABASE"); ok {
		cfg.Database = v
	}
	if v, ok := getEnvString("PHANTOM_OWNER"); ok {
		cfg.Owner = v
	}
	if v, ok := getEnvString("PHANTOM_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvInt("PHANTOM_DEFAULT_DURATION_MINUTES"); ok && v > 0 {
		cfg.DefaultDurationMinutes = v
	}
	if v, ok := getEnvInt("PHANTOM_HORIZON_DAYS"); ok && v > 0 {
		cfg.HorizonDays = v
	}
	if v, ok := getEnvInt("PHANTOM_MAX_ITERATIONS"); ok && v > 0 {
		cfg.MaxIterations = v
	}
	if v, ok := getEnvString("PHANTOM_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("PHANTOM_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := getEnvString("PHANTOM_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvString("PHANTOM_OPTIMIZE_CRON"); ok {
		cfg.OptimizeCron = v
	}
	if v, ok := getEnvInt("PHANTOM_OPTIMIZE_DAYS"); ok && v > 0 {
		cfg.OptimizeDays = v
	}
	if v, ok := getEnvBool("PHANTOM_METRICS"); ok {
		cfg.Metrics = v
	}
	return cfg
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
