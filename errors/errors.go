package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that require a restart
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Task lifecycle errors
	ErrAlreadyRunning = errors.New("task already running")
	ErrNotRunning     = errors.New("task not running")
	ErrStopping       = errors.New("task is stopping")

	// Entity errors
	ErrDuplicateLabel    = errors.New("entity label owned by another task")
	ErrNonexistentLabel  = errors.New("nonexistent entity label")
	ErrUnresolvedEntity  = errors.New("unresolved entity")
	ErrUnknownEntity     = errors.New("unknown entity id")
	ErrTransitionPending = errors.New("activation transition already in progress")

	// Serial and protocol errors
	ErrPortClosed     = errors.New("serial port closed")
	ErrReadTimeout    = errors.New("read timeout")
	ErrWriteFailed    = errors.New("write failed")
	ErrChecksumFailed = errors.New("checksum validation failed")
	ErrFrameTooLong   = errors.New("frame exceeds buffer")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingParam  = errors.New("missing required parameter")
	ErrParamRange    = errors.New("parameter value out of range")

	// Bus errors
	ErrNoHandler      = errors.New("no handler bound for message")
	ErrDuplicateBind  = errors.New("handler already bound for message")
	ErrQueueOverflow  = errors.New("recipient queue overflow")
	ErrBusUnavailable = errors.New("bus unavailable")

	// Resource errors
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and the operation may be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrReadTimeout) ||
		errors.Is(err, ErrWriteFailed) ||
		errors.Is(err, ErrUnresolvedEntity) ||
		errors.Is(err, ErrQueueOverflow) ||
		errors.Is(err, ErrBusUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	// Fall back to common transient patterns for errors from device drivers
	// and third-party I/O libraries.
	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"temporarily",
		"unavailable",
		"busy",
		"interrupted",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and the owning task must restart
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrPortClosed) ||
		errors.Is(err, ErrResourceExhausted) ||
		errors.Is(err, ErrDeviceUnavailable)
}

// IsInvalid checks if an error is due to invalid input or configuration
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingParam) ||
		errors.Is(err, ErrParamRange) ||
		errors.Is(err, ErrDuplicateLabel) ||
		errors.Is(err, ErrDuplicateBind) ||
		errors.Is(err, ErrChecksumFailed)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	// Default to transient for unknown errors so callers may retry
	return ErrorTransient
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// New creates a plain error. Provided so callers do not need to import both
// this package and the standard library errors package.
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target
func As(err error, target any) bool {
	return errors.As(err, target)
}
