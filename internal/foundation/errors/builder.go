package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	hint     string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithCause sets the wrapped error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithHint sets a remediation hint printed under the error message.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		hint:     b.hint,
		cause:    b.cause,
		context:  b.context,
	}
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// RuntimeNotFound reports that the runtime executable could not be run.
func RuntimeNotFound(runtime string) *ErrorBuilder {
	return NewError(CategoryRuntime, runtime+" is not installed").
		Fatal().
		WithContext("runtime", runtime)
}

// InstallFailed reports a package-manager install that exited non-zero.
func InstallFailed(exitCode int) *ErrorBuilder {
	return NewError(CategoryInstall, "failed to install dependencies").
		Fatal().
		WithContext("exit_code", exitCode)
}

// SpawnFailed reports that the server process could not be started at all.
func SpawnFailed(command string) *ErrorBuilder {
	return NewError(CategorySpawn, "failed to start server process").
		Fatal().
		WithContext("command", command)
}

// ReadinessTimeout reports a server that never accepted connections in time.
func ReadinessTimeout(addr string) *ErrorBuilder {
	return NewError(CategoryReadiness, "server failed to start within timeout").
		Fatal().
		WithContext("addr", addr)
}

// ChildExitedUnexpectedly reports a server that exited while it was being supervised.
func ChildExitedUnexpectedly() *ErrorBuilder {
	return NewError(CategoryChild, "server process ended unexpectedly")
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
