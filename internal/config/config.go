package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/logfields"
)

// DefaultFileName is the optional configuration file looked up in the launcher directory.
const DefaultFileName = "launcher.yaml"

// Config represents the launcher configuration. It is immutable once Load returns.
type Config struct {
	// Dir is the launcher directory: every child command runs with it as working directory.
	Dir string `yaml:"-"`

	Port      int    `yaml:"port"`
	ProbeHost string `yaml:"probe_host"`
	Name      string `yaml:"name"`  // short application name used in progress messages
	Title     string `yaml:"title"` // banner line

	Runtime      RuntimeConfig    `yaml:"runtime"`
	Dependencies DependencyConfig `yaml:"dependencies"`
	Server       ServerConfig     `yaml:"server"`
	Readiness    ReadinessConfig  `yaml:"readiness"`
	Shutdown     ShutdownConfig   `yaml:"shutdown"`
	Browser      BrowserConfig    `yaml:"browser"`
	Liveness     LivenessConfig   `yaml:"liveness"`
	Watch        WatchConfig      `yaml:"watch"`
	Metrics      MetricsConfig    `yaml:"metrics"`
	Logging      LoggingConfig    `yaml:"logging"`
}

// RuntimeConfig describes the prerequisite runtime and how to probe for it.
type RuntimeConfig struct {
	Name         string   `yaml:"name"`
	VersionQuery []string `yaml:"version_query"`
	InstallHint  string   `yaml:"install_hint"`
}

// DependencyConfig describes the on-disk dependency root and how to populate it.
type DependencyConfig struct {
	Dir      string   `yaml:"dir"`
	Required []string `yaml:"required"`
	Install  []string `yaml:"install"`
}

// ServerConfig is the long-lived server command.
type ServerConfig struct {
	Command []string `yaml:"command"`
	Env     []string `yaml:"env,omitempty"` // extra KEY=VALUE entries appended to the inherited environment
}

// ReadinessConfig controls the TCP readiness poll.
type ReadinessConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Interval       time.Duration `yaml:"interval"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
}

// ShutdownConfig controls the two-phase stop of the server.
type ShutdownConfig struct {
	GracePeriod  time.Duration `yaml:"grace_period"`
	FailureGrace time.Duration `yaml:"failure_grace"` // used when the server never became ready
}

// BrowserConfig controls the browser tab opened once the server is ready.
type BrowserConfig struct {
	Open bool `yaml:"open"`
}

// LivenessConfig controls the periodic port probe while the server runs. Zero disables it.
type LivenessConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// WatchConfig controls restart-on-change.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Paths    []string      `yaml:"paths"`
	Ignore   []string      `yaml:"ignore"`
	Debounce time.Duration `yaml:"debounce"`
}

// MetricsConfig controls the optional Prometheus endpoint. Empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Overrides carries command-line values that take precedence over file and environment.
type Overrides struct {
	Port          int
	NoBrowser     bool
	Watch         bool
	MetricsListen string
}

// BaseURL is the URL opened in the browser.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// ProbeAddr is the TCP address polled for readiness.
func (c *Config) ProbeAddr() string {
	return net.JoinHostPort(c.ProbeHost, strconv.Itoa(c.Port))
}

// Load builds the configuration for the launcher directory dir.
// Precedence: defaults < YAML file < .env / environment < overrides.
// An empty path means the optional DefaultFileName inside dir; an explicit path must exist.
func Load(dir, path string, ov Overrides) (*Config, error) {
	cfg := Default(dir)

	if err := loadFile(cfg, dir, path); err != nil {
		return nil, err
	}
	if err := loadEnvFile(dir); err != nil {
		// The file belongs to the server; syntax godotenv rejects is still valid for node.
		slog.Warn("Ignoring .env the launcher cannot parse",
			logfields.Path(filepath.Join(dir, ".env")), logfields.Error(err))
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyOverrides(cfg, ov)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, dir, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", path).
			Build()
	}

	if err := decode(bytes.NewReader([]byte(os.ExpandEnv(string(data)))), cfg); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
			Fatal().
			WithContext("path", path).
			Build()
	}
	return nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyOverrides(cfg *Config, ov Overrides) {
	if ov.Port != 0 {
		cfg.Port = ov.Port
	}
	if ov.NoBrowser {
		cfg.Browser.Open = false
	}
	if ov.Watch {
		cfg.Watch.Enabled = true
	}
	if ov.MetricsListen != "" {
		cfg.Metrics.Listen = ov.MetricsListen
	}
}

// ResolveDir picks the launcher directory. An explicit dir wins. Otherwise the
// executable's directory is used when it holds the server entry file, falling
// back to the working directory (which covers `go run`).
func ResolveDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exeDir := filepath.Dir(resolved)
			if hasServerEntry(exeDir) {
				return exeDir, nil
			}
		}
	}
	return os.Getwd()
}

func hasServerEntry(dir string) bool {
	entry := defaultServerCommand[len(defaultServerCommand)-1]
	st, err := os.Stat(filepath.Join(dir, entry))
	return err == nil && !st.IsDir()
}

// Describe renders a command line for logs and messages.
func Describe(argv []string) string {
	return strings.Join(argv, " ")
}
