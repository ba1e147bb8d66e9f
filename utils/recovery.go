package utils

import (
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// SafeGo runs a goroutine with panic recovery
func SafeGo(logger *Logger, context string, fn func()) {
	go func() {
		RunSafe(logger, context, fn)
	}()
}

// SafeGoWithError runs a goroutine with panic recovery and error handling
func SafeGoWithError(logger *Logger, context string, fn func() error, onError func(error)) {
	go func() {
		RunSafe(logger, context, func() {
			if err := fn(); err != nil {
				logger.Error("Error in %s: %v", context, err)
				if onError != nil {
					onError(err)
				}
			}
		})
	}()
}

// RunSafe calls fn on the current goroutine and logs a recovered panic instead of crashing.
// It reports whether fn returned normally.
func RunSafe(logger *Logger, context string, fn func()) bool {
	var pc panics.Catcher
	pc.Try(fn)
	if r := pc.Recovered(); r != nil {
		logger.Error("Panic recovered in %s: %v\nStack trace:\n%s", context, r.Value, string(r.Stack))
		return false
	}
	return true
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
