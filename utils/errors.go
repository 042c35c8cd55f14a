package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// UsageError is returned when a command line is missing something it cannot run without.
type UsageError struct {
	Msg string
}

// NewUsageError returns a UsageError with the given message.
func NewUsageError(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

func (e *UsageError) Error() string {
	return e.Msg
}

// IOError is returned when a file cannot be opened, created, read or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// NewIOError wraps err as an IOError for the given operation on path. A nil err stays nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError is returned when a file exists but its contents are not a valid dataset.
type FormatError struct {
	Path   string
	Reason string
}

// NewFormatError returns a FormatError for path.
func NewFormatError(path, format string, args ...interface{}) error {
	return &FormatError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return "invalid format: " + e.Reason
	}
	return fmt.Sprintf("invalid format in %q: %s", e.Path, e.Reason)
}

// IsUsageError reports whether err or anything it wraps is a UsageError.
func IsUsageError(err error) bool {
	var target *UsageError
	return errors.As(err, &target)
}

// IsIOError reports whether err or anything it wraps is an IOError.
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

// IsFormatError reports whether err or anything it wraps is a FormatError.
func IsFormatError(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}
