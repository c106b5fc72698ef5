package collector

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one workspace's collection setup. Zero values mean
// "use the default"; Resolve fills them in.
type Config struct {
	// Workspace is the project root (also the git repository root).
	Workspace string `yaml:"-"`

	// LogDir is the log directory, relative to the workspace.
	LogDir string `yaml:"log_dir"`

	// Manifest is the task manifest path, relative to the workspace.
	Manifest string `yaml:"manifest"`

	// LogExtensions are the recognized log file extensions.
	LogExtensions []string `yaml:"log_extensions"`

	// Interval is the poll interval for daemon mode.
	Interval time.Duration `yaml:"-"`

	// MetricsAddr, when set, serves prometheus metrics in daemon mode
	// (e.g. ":9481").
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults applied by Resolve.
const (
	DefaultLogDir   = "logs"
	DefaultManifest = "tasks.json"
	DefaultInterval = 30 * time.Second
)

// Resolve returns the config with defaults filled in and relative paths
// anchored at the workspace.
func (c Config) Resolve() Config {
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if len(c.LogExtensions) == 0 {
		c.LogExtensions = DefaultLogExtensions
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Workspace != "" {
		if !filepath.IsAbs(c.LogDir) {
			c.LogDir = filepath.Join(c.Workspace, c.LogDir)
		}
		if !filepath.IsAbs(c.Manifest) {
			c.Manifest = filepath.Join(c.Workspace, c.Manifest)
		}
	}
	return c
}

// LoadConfig reads the workspace config file at path and resolves it
// for the given workspace. A missing file yields the defaults silently;
// a malformed file yields the defaults with a warning.
func LoadConfig(workspace, path string, logger *log.Logger) Config {
	if logger == nil {
		logger = log.Default()
	}
	cfg := Config{Workspace: workspace}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Printf("warn: read config %s: %v", path, err)
		}
		return cfg.Resolve()
	}

	var raw struct {
		Config   `yaml:",inline"`
		Interval string `yaml:"interval"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		logger.Printf("warn: parse config %s: %v (using defaults)", path, err)
		return Config{Workspace: workspace}.Resolve()
	}

	cfg = raw.Config
	cfg.Workspace = workspace
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			logger.Printf("warn: config %s: bad interval %q: %v", path, raw.Interval, err)
		} else {
			cfg.Interval = d
		}
	}
	return cfg.Resolve()
}
