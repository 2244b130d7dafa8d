package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/domsync/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "domsync.json"

	// DefaultFrameRate is the number of frames per second the ticker frame
	// source delivers.
	DefaultFrameRate = 60

	// DefaultSlowCycle is the render cycle duration above which a cycle is
	// logged as slow.
	DefaultSlowCycle = "16ms"

	// DefaultPort is the default serve port.
	DefaultPort = 8080

	// DefaultHost is the default serve host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "domsync"
)

// Config represents the complete domsync.json configuration.
type Config struct {
	// Scheduler contains render scheduling configuration.
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Serve contains configuration for the demo server.
	Serve ServeConfig `json:"serve,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SchedulerConfig contains render scheduling settings.
type SchedulerConfig struct {
	// FrameRate is the number of frames per second (1-240).
	FrameRate int `json:"frameRate,omitempty"`

	// Sync renders synchronously on every request instead of batching per frame.
	Sync bool `json:"sync,omitempty"`

	// SlowCycle is the threshold above which a render cycle is logged at
	// warn level (e.g., "16ms").
	SlowCycle string `json:"slowCycle,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Disabled turns off metrics collection.
	Disabled bool `json:"disabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// ServeConfig contains settings for the serve command.
type ServeConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// WSPath is the WebSocket endpoint path.
	WSPath string `json:"wsPath,omitempty"`

	// MetricsPath is the Prometheus scrape path.
	MetricsPath string `json:"metricsPath,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			FrameRate: DefaultFrameRate,
			SlowCycle: DefaultSlowCycle,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
		Serve: ServeConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			WSPath:      "/ws",
			MetricsPath: "/metrics",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for domsync.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadOrDefault is like Load but returns the defaults when the directory has
// no domsync.json.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E020").
				WithDetail("No domsync.json found in " + filepath.Dir(path)).
				WithSuggestion("Create domsync.json or run without --config to use the defaults")
		}
		return nil, errors.New("E020").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E020").
			WithDetail("Failed to parse domsync.json: " + err.Error()).
			WithSuggestion("Check that domsync.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E020").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E020").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Scheduler
	if c.Scheduler.FrameRate == 0 {
		c.Scheduler.FrameRate = DefaultFrameRate
	}
	if c.Scheduler.SlowCycle == "" {
		c.Scheduler.SlowCycle = DefaultSlowCycle
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Metrics
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}

	// Serve
	if c.Serve.Host == "" {
		c.Serve.Host = DefaultHost
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultPort
	}
	if c.Serve.WSPath == "" {
		c.Serve.WSPath = "/ws"
	}
	if c.Serve.MetricsPath == "" {
		c.Serve.MetricsPath = "/metrics"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Scheduler.FrameRate < 1 || c.Scheduler.FrameRate > 240 {
		return errors.New("E021").
			WithDetail("scheduler.frameRate must be between 1 and 240")
	}
	if d, err := time.ParseDuration(c.Scheduler.SlowCycle); err != nil || d <= 0 {
		return errors.New("E021").
			WithDetail("scheduler.slowCycle must be a positive duration such as \"16ms\"")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("E021").
			WithDetail("log.level must be one of debug, info, warn, error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("E021").
			WithDetail("log.format must be \"text\" or \"json\"")
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return errors.New("E021").
			WithDetail("serve.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Serve.WSPath, "/") || !strings.HasPrefix(c.Serve.MetricsPath, "/") {
		return errors.New("E021").
			WithDetail("serve paths must start with /")
	}
	return nil
}

// FrameInterval returns the delay between two frames.
func (c *Config) FrameInterval() time.Duration {
	rate := c.Scheduler.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return time.Second / time.Duration(rate)
}

// SlowCycleThreshold returns the parsed slow-cycle threshold.
func (c *Config) SlowCycleThreshold() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.SlowCycle)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultSlowCycle)
	}
	return d
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// ServeAddress returns the listen address for the serve command.
func (c *Config) ServeAddress() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing domsync.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E020").
				WithDetail("No domsync.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
