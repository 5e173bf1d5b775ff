package main

import (
	"errors"
	"os"

	htmlprint "github.com/printable/go-htmlprint"
)

// Exit codes for the htmlprint CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful export
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, htmlprint.ErrBrowserConnect) ||
		errors.Is(err, htmlprint.ErrPageCreate) ||
		errors.Is(err, htmlprint.ErrPageLoad) ||
		errors.Is(err, htmlprint.ErrCaptureFailure) ||
		errors.Is(err, htmlprint.ErrEnvironment) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrReadStyle) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrConfigParse) ||
		errors.Is(err, htmlprint.ErrValidation) ||
		errors.Is(err, htmlprint.ErrContentMissing) ||
		errors.Is(err, htmlprint.ErrMarkdownConvert) {
		return ExitUsage
	}

	return ExitGeneral
}
