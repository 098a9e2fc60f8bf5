package errors

import (
	stderrors "errors"
	"strings"
)

// ClassifiedError is a launcher failure. Category and message say what went
// wrong; the hint is shown to the user and the context is only logged.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	hint     string
	cause    error
	context  ErrorContext
}

// Error renders "category: message: cause". Severity and hint are presentation
// concerns left to the CLI adapter.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.category))
	b.WriteString(": ")
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity { return e.severity }
func (e *ClassifiedError) Message() string         { return e.message }
func (e *ClassifiedError) Hint() string            { return e.hint }
func (e *ClassifiedError) Cause() error            { return e.cause }
func (e *ClassifiedError) Context() ErrorContext   { return e.context }

// WithContext returns a copy with key set; the receiver is not modified.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	clone := *e
	clone.context = e.context.Merge(ErrorContext{key: value})
	return &clone
}

// Is matches errors of the same category and message, so a copy made by
// WithContext still matches its origin.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

func (e *ClassifiedError) IsCategory(category ErrorCategory) bool { return e.category == category }

func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// AsClassified returns the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

func HasCategory(err error, category ErrorCategory) bool {
	c, ok := AsClassified(err)
	return ok && c.category == category
}

func HasSeverity(err error, severity ErrorSeverity) bool {
	c, ok := AsClassified(err)
	return ok && c.severity == severity
}

// GetCategory is the category of err, or CategoryInternal for plain errors.
func GetCategory(err error) ErrorCategory {
	if c, ok := AsClassified(err); ok {
		return c.category
	}
	return CategoryInternal
}
