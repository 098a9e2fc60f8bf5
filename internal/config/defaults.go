package config

import "time"

const (
	DefaultPort           = 3000
	DefaultProbeHost      = "127.0.0.1"
	DefaultReadyTimeout   = 30 * time.Second
	DefaultConnectTimeout = time.Second
	DefaultPollInterval   = 300 * time.Millisecond
	DefaultSettleDelay    = 500 * time.Millisecond
	DefaultGracePeriod    = 5 * time.Second
	DefaultFailureGrace   = 2 * time.Second
	DefaultLivenessPeriod = 10 * time.Second
	DefaultWatchDebounce  = 300 * time.Millisecond

	defaultDependencyDir = "node_modules"
	defaultRuntimeName   = "Node.js"
	defaultRuntimeHint   = "Please install Node.js from https://nodejs.org/"
	defaultName          = "Axis"
	defaultTitle         = "Axis - AI Study Planner"
)

var (
	defaultVersionQuery  = []string{"node", "--version"}
	defaultInstall       = []string{"npm", "install"}
	defaultServerCommand = []string{"node", "server.js"}

	// DefaultRequiredPackages are the packages whose absence triggers an install.
	DefaultRequiredPackages = []string{"express", "helmet", "cors", "bcryptjs", "jsonwebtoken", "dotenv"}
)

// Default returns the built-in configuration for launcher directory dir.
func Default(dir string) *Config {
	return &Config{
		Dir:       dir,
		Port:      DefaultPort,
		ProbeHost: DefaultProbeHost,
		Name:      defaultName,
		Title:     defaultTitle,
		Runtime: RuntimeConfig{
			Name:         defaultRuntimeName,
			VersionQuery: clone(defaultVersionQuery),
			InstallHint:  defaultRuntimeHint,
		},
		Dependencies: DependencyConfig{
			Dir:      defaultDependencyDir,
			Required: clone(DefaultRequiredPackages),
			Install:  clone(defaultInstall),
		},
		Server: ServerConfig{
			Command: clone(defaultServerCommand),
		},
		Readiness: ReadinessConfig{
			Timeout:        DefaultReadyTimeout,
			ConnectTimeout: DefaultConnectTimeout,
			Interval:       DefaultPollInterval,
			SettleDelay:    DefaultSettleDelay,
		},
		Shutdown: ShutdownConfig{
			GracePeriod:  DefaultGracePeriod,
			FailureGrace: DefaultFailureGrace,
		},
		Browser:  BrowserConfig{Open: true},
		Liveness: LivenessConfig{Interval: DefaultLivenessPeriod},
		Watch: WatchConfig{
			Paths:    []string{"server.js"},
			Ignore:   []string{defaultDependencyDir, ".git"},
			Debounce: DefaultWatchDebounce,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
