package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
)

// Environment variables read by the launcher.
const (
	EnvPort         = "AXIS_PORT"
	EnvNoBrowser    = "AXIS_NO_BROWSER"
	EnvReadyTimeout = "AXIS_READY_TIMEOUT"
	EnvLogLevel     = "AXIS_LOG_LEVEL"
)

// loadEnvFile loads <dir>/.env into the process environment when present.
// Existing process environment variables are not overwritten, and the server
// child inherits the result. A parse error leaves the environment untouched.
func loadEnvFile(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func applyEnv(cfg *Config) error {
	if raw, ok := os.LookupEnv(EnvPort); ok && raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return envError(EnvPort, raw, err)
		}
		cfg.Port = port
	}
	if raw, ok := os.LookupEnv(EnvNoBrowser); ok && raw != "" {
		noBrowser, err := strconv.ParseBool(raw)
		if err != nil {
			return envError(EnvNoBrowser, raw, err)
		}
		if noBrowser {
			cfg.Browser.Open = false
		}
	}
	if raw, ok := os.LookupEnv(EnvReadyTimeout); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return envError(EnvReadyTimeout, raw, err)
		}
		cfg.Readiness.Timeout = d
	}
	if raw, ok := os.LookupEnv(EnvLogLevel); ok && raw != "" {
		cfg.Logging.Level = LogLevel(raw)
	}
	return nil
}

func envError(name, raw string, err error) error {
	return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid environment variable "+name).
		Fatal().
		WithContext("value", raw).
		Build()
}
