package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Common error types used across the sync and ingestion packages
var (
	ErrPathEmpty   = errors.New("path cannot be empty")
	ErrPathTooLong = errors.New("path too long (max 4096 characters)")
	ErrPathInvalid = errors.New("path contains invalid characters")
	ErrNotFound    = errors.New("not found")
	ErrParse       = errors.New("parse failure")
	ErrTransient   = errors.New("transient network failure")
)

// RateLimitError reports an admission denial together with the number of
// seconds until the window frees a slot.
type RateLimitError struct {
	Key         string
	WaitSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q, retry in %ds", e.Key, e.WaitSeconds)
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// ValidationUtils provides common validation utilities used across packages
type ValidationUtils struct{}

// NewValidationUtils creates a new ValidationUtils instance
func NewValidationUtils() *ValidationUtils {
	return &ValidationUtils{}
}

// ValidateContextCancellation checks if context is cancelled and returns appropriate error
func (vu *ValidationUtils) ValidateContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ValidatePath validates that a path argument is usable before any I/O
func (vu *ValidationUtils) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrPathEmpty
	}
	if len(path) > 4096 {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return ErrPathInvalid
	}
	return nil
}

// ValidateDestinationDir validates a destination directory argument: the same
// shape checks as ValidatePath plus a traversal bound. A single leading ".."
// is tolerated for sibling layouts; anything deeper is rejected.
func (vu *ValidationUtils) ValidateDestinationDir(dir string) error {
	if err := vu.ValidatePath(dir); err != nil {
		return err
	}
	depth := 0
	for _, part := range strings.Split(dir, string(os.PathSeparator)) {
		if part == ".." {
			depth++
		}
	}
	if depth > 1 {
		return fmt.Errorf("%w: %q escapes its base", ErrPathInvalid, dir)
	}
	return nil
}

// ValidateDirectoryExists validates that a directory exists
func (vu *ValidationUtils) ValidateDirectoryExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: directory %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to access directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return nil
}

// ValidateFileExists validates that a file exists
func (vu *ValidationUtils) ValidateFileExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: file %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to access file %s: %w", path, err)
	}
	return nil
}

// ErrorUtils provides common error handling utilities
type ErrorUtils struct{}

// NewErrorUtils creates a new ErrorUtils instance
func NewErrorUtils() *ErrorUtils {
	return &ErrorUtils{}
}

// WrapError wraps an error with additional context
func (eu *ErrorUtils) WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}

// LogAndWrapError logs an error and wraps it with context
func (eu *ErrorUtils) LogAndWrapError(err error, level slog.Level, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	context := fmt.Sprintf(message, args...)

	switch level {
	case slog.LevelDebug:
		slog.Debug(context, "error", err)
	case slog.LevelInfo:
		slog.Info(context, "error", err)
	case slog.LevelWarn:
		slog.Warn(context, "error", err)
	case slog.LevelError:
		slog.Error(context, "error", err)
	}

	return fmt.Errorf("%s: %w", context, err)
}

// IsCancellation reports whether err is a cooperative-cancellation outcome
// rather than a failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
