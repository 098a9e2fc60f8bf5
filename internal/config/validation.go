package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/axislauncher/internal/foundation"
)

var configValidators = foundation.NewValidatorChain[*Config](
	validatePort,
	validateCommands,
	validateReadiness,
	validateShutdown,
	validateBackground,
	validateLogging,
)

// Validate checks every field the launcher depends on and reports all problems at once.
func (c *Config) Validate() error {
	return configValidators.Validate(c).ToError()
}

func validatePort(c *Config) foundation.ValidationResult {
	res := foundation.IntInRange("port", c.Port, 1, 65535)
	if strings.TrimSpace(c.ProbeHost) == "" {
		res = res.Combine(foundation.Invalid(foundation.NewValidationError("probe_host", "required", "must not be empty")))
	}
	return res
}

func validateCommands(c *Config) foundation.ValidationResult {
	res := foundation.NonEmptyCommand("runtime.version_query", c.Runtime.VersionQuery).
		Combine(foundation.NonEmptyCommand("dependencies.install", c.Dependencies.Install)).
		Combine(foundation.NonEmptyCommand("server.command", c.Server.Command))
	if strings.TrimSpace(c.Dependencies.Dir) == "" {
		res = res.Combine(foundation.Invalid(foundation.NewValidationError("dependencies.dir", "required", "must not be empty")))
	}
	for i, pkg := range c.Dependencies.Required {
		if strings.TrimSpace(pkg) == "" {
			res = res.Combine(foundation.Invalid(foundation.NewValidationError(
				fmt.Sprintf("dependencies.required[%d]", i), "required", "package name must not be empty")))
		}
	}
	for i, kv := range c.Server.Env {
		if !strings.Contains(kv, "=") {
			res = res.Combine(foundation.Invalid(foundation.NewValidationError(
				fmt.Sprintf("server.env[%d]", i), "format", "expected KEY=VALUE")))
		}
	}
	return res
}

func validateReadiness(c *Config) foundation.ValidationResult {
	return foundation.PositiveDuration("readiness.timeout", c.Readiness.Timeout).
		Combine(foundation.PositiveDuration("readiness.connect_timeout", c.Readiness.ConnectTimeout)).
		Combine(foundation.PositiveDuration("readiness.interval", c.Readiness.Interval)).
		Combine(foundation.NonNegativeDuration("readiness.settle_delay", c.Readiness.SettleDelay))
}

func validateShutdown(c *Config) foundation.ValidationResult {
	return foundation.PositiveDuration("shutdown.grace_period", c.Shutdown.GracePeriod).
		Combine(foundation.PositiveDuration("shutdown.failure_grace", c.Shutdown.FailureGrace))
}

func validateBackground(c *Config) foundation.ValidationResult {
	res := foundation.NonNegativeDuration("liveness.interval", c.Liveness.Interval)
	if c.Watch.Enabled {
		res = res.Combine(foundation.PositiveDuration("watch.debounce", c.Watch.Debounce))
		if len(c.Watch.Paths) == 0 {
			res = res.Combine(foundation.Invalid(foundation.NewValidationError("watch.paths", "required", "watch mode needs at least one path")))
		}
	}
	return res
}

func validateLogging(c *Config) foundation.ValidationResult {
	res := foundation.Valid()
	if _, err := logLevelNormalizer.Parse(string(c.Logging.Level)); err != nil {
		res = res.Combine(invalidEnum("logging.level", err))
	}
	if _, err := logFormatNormalizer.Parse(string(c.Logging.Format)); err != nil {
		res = res.Combine(invalidEnum("logging.format", err))
	}
	return res
}

func invalidEnum(field string, err error) foundation.ValidationResult {
	return foundation.Invalid(foundation.NewValidationError(field, "one_of", err.Error()))
}
