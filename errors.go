package htmlprint

import "errors"

// Sentinel errors for library operations.
var (
	ErrNotReady        = errors.New("rendering surface is not ready")
	ErrBusy            = errors.New("a download is already in progress")
	ErrValidation      = errors.New("invalid command payload")
	ErrCaptureFailure  = errors.New("segment capture failed")
	ErrAssemblyFailure = errors.New("PDF assembly failed")
	ErrFinalized       = errors.New("document already finalized")
	ErrSourceChanged   = errors.New("source changed during export")

	// ErrContentMissing carries the exact message the command protocol
	// promises to external callers, capitalization included.
	ErrContentMissing = errors.New("No HTML content is available.")

	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrEnvironment    = errors.New("required browser capability unavailable")

	// Markdown adapter errors.
	ErrMarkdownConvert = errors.New("markdown conversion failed")
)
