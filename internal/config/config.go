package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/tracked/internal/errors"
	"github.com/vango-dev/tracked/pkg/observable"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "tracked.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultSnapshotName is the default snapshot name.
	DefaultSnapshotName = "store"

	// DefaultSnapshotDir is the default directory for file snapshots.
	DefaultSnapshotDir = "snapshots"
)

// Snapshot drivers.
const (
	DriverNone = "none"
	DriverFile = "file"
	DriverS3   = "s3"
)

// Config represents the complete tracked.json configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server"`

	// Runtime contains reactive runtime configuration.
	Runtime RuntimeConfig `json:"runtime"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing"`

	// Snapshot contains snapshot persistence configuration.
	Snapshot SnapshotConfig `json:"snapshot"`

	// State is the initial store. Its keys are the tracked fields.
	State map[string]any `json:"state"`

	// configPath is the path the config was loaded from (not serialized).
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address in host:port form.
	Addr string `json:"addr,omitempty"`

	// AllowedOrigins restricts WebSocket origins. Empty allows all.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// RuntimeConfig contains reactive runtime settings.
type RuntimeConfig struct {
	// MaxDepth is the notification depth limit. Zero means unbounded.
	// Nil uses observable.DefaultMaxDepth.
	MaxDepth *int `json:"maxDepth,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// JSON switches the log handler to JSON output.
	JSON bool `json:"json,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled"`
	TracerName string `json:"tracerName,omitempty"`
}

// SnapshotConfig contains snapshot persistence settings.
type SnapshotConfig struct {
	// Driver is none, file or s3.
	Driver string `json:"driver,omitempty"`

	// Name is the snapshot name (file base name or object key stem).
	Name string `json:"name,omitempty"`

	// Autosave saves after every change.
	Autosave bool `json:"autosave"`

	// Dir is the directory for the file driver.
	Dir string `json:"dir,omitempty"`

	// Bucket, Prefix, Region and Endpoint configure the s3 driver.
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{
		Metrics: MetricsConfig{Enabled: true},
	}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory.
// It looks for tracked.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Pass --config with a valid path or create " + ConfigFileName)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E101").Wrap(err)
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
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "tracked"
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "tracked"
	}
	if c.Snapshot.Driver == "" {
		c.Snapshot.Driver = DriverNone
	}
	if c.Snapshot.Name == "" {
		c.Snapshot.Name = DefaultSnapshotName
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = DefaultSnapshotDir
	}
	if c.State == nil {
		c.State = map[string]any{}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return errors.New("E102").
			WithDetail("Address " + c.Server.Addr + " is not in host:port form").
			Wrap(err)
	}

	if c.Runtime.MaxDepth != nil && *c.Runtime.MaxDepth < 0 {
		return errors.New("E103").
			WithSuggestion("Use 0 for unbounded or a positive limit")
	}

	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("E106").
			WithDetail("Unknown log level " + c.Log.Level)
	}

	switch c.Snapshot.Driver {
	case DriverNone, DriverFile:
	case DriverS3:
		if c.Snapshot.Bucket == "" {
			return errors.New("E105").
				WithDetail("The s3 snapshot driver requires a bucket").
				WithSuggestion(`Set "snapshot.bucket" or pass --snapshot-bucket`)
		}
		if c.Snapshot.Region == "" {
			return errors.New("E105").
				WithDetail("The s3 snapshot driver requires a region").
				WithSuggestion(`Set "snapshot.region" or AWS_REGION`)
		}
	default:
		return errors.New("E104").
			WithDetail("Unknown snapshot driver " + c.Snapshot.Driver)
	}

	return nil
}

// MaxDepth returns the configured notification depth limit.
func (c *Config) MaxDepth() int {
	if c.Runtime.MaxDepth == nil {
		return observable.DefaultMaxDepth
	}
	return *c.Runtime.MaxDepth
}

// LogLevel returns the slog level for the configured log level.
// Unknown levels map to info.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

// SnapshotDir returns the file snapshot directory, resolved against the
// config file directory when relative.
func (c *Config) SnapshotDir() string {
	if filepath.IsAbs(c.Snapshot.Dir) || c.Dir() == "" {
		return c.Snapshot.Dir
	}
	return filepath.Join(c.Dir(), c.Snapshot.Dir)
}

// OriginAllowed reports whether a WebSocket origin is allowed.
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.Server.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
