package htmlprint

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Export status states. A run moves idle -> generating -> (ready | error);
// idle is re-emitted when the retained result expires.
const (
	StateIdle       = "idle"
	StateGenerating = "generating"
	StateReady      = "ready"
	StateError      = "error"
)

// Status is one event on the export status channel.
type Status struct {
	State    string `json:"status"`
	Base64   string `json:"base64,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Result is a finalized export artifact.
type Result struct {
	PDF      []byte
	Base64   string
	FileName string
}

// DataURL returns the artifact as a data URL for embedding.
func (r *Result) DataURL() string {
	return "data:application/pdf;base64," + r.Base64
}

// Exporter defaults.
const (
	defaultExportTimeout = 30 * time.Second
	defaultDebounce      = 1500 * time.Millisecond
	defaultRetention     = 10 * time.Second
)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	timeout   time.Duration
	debounce  time.Duration
	retention time.Duration
	outputDir string
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportTimeout bounds one export run.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithExportTimeout(d time.Duration) ExporterOption {
	if d <= 0 {
		panic("htmlprint: WithExportTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithDebounce sets the duplicate-trigger suppression window. Zero disables
// debouncing. Panics if d < 0.
func WithDebounce(d time.Duration) ExporterOption {
	if d < 0 {
		panic("htmlprint: WithDebounce duration must not be negative")
	}
	return func(e *Exporter) {
		e.cfg.debounce = d
	}
}

// WithOutputDir sets the directory the finalized PDF is saved into. Empty
// (the default) skips the file save.
func WithOutputDir(dir string) ExporterOption {
	return func(e *Exporter) {
		e.cfg.outputDir = dir
	}
}

// WithStatusFunc registers the export status channel. Events arrive on the
// exporting goroutine; f must not block.
func WithStatusFunc(f func(Status)) ExporterOption {
	return func(e *Exporter) {
		e.status = f
	}
}

// Test-injection options (not exported).

func withCapturer(fn func() (documentCapturer, error)) ExporterOption {
	return func(e *Exporter) {
		e.capturerFn = fn
	}
}

func withAssembler(fn func() pageAssembler) ExporterOption {
	return func(e *Exporter) {
		e.assemblerFn = fn
	}
}

func withSave(fn func(name string, data []byte) error) ExporterOption {
	return func(e *Exporter) {
		e.saveFn = fn
	}
}

func withRetention(d time.Duration) ExporterOption {
	return func(e *Exporter) {
		e.cfg.retention = d
	}
}

// downloader is the command state machine's view of the exporter.
type downloader interface {
	Download(ctx context.Context) error
	InFlight() bool
}

// Compile-time interface check
var _ downloader = (*Exporter)(nil)

// Exporter owns the download operation end to end: it drives the pagination
// engine and the assembler, converts the result into distributable forms,
// and enforces the single-in-flight and debounce invariants.
type Exporter struct {
	cfg     exporterConfig
	surface renderSurface
	status  func(Status)

	capturerFn  func() (documentCapturer, error)
	assemblerFn func() pageAssembler
	saveFn      func(name string, data []byte) error

	mu        sync.Mutex
	inFlight  bool
	lastStart time.Time
	last      *Result
}

// NewExporter creates an Exporter over surface. When surface is not a
// *Surface, a capturer must be injected; passing anything else panics.
func NewExporter(surface renderSurface, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		surface: surface,
		cfg: exporterConfig{
			timeout:   defaultExportTimeout,
			debounce:  defaultDebounce,
			retention: defaultRetention,
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.capturerFn == nil {
		s, ok := surface.(*Surface)
		if !ok {
			panic("htmlprint: NewExporter requires a *Surface or an injected capturer")
		}
		e.capturerFn = func() (documentCapturer, error) {
			return newSegmentRasterizer(s), nil
		}
	}
	if e.assemblerFn == nil {
		e.assemblerFn = func() pageAssembler {
			return newPDFAssembler()
		}
	}

	return e
}

// InFlight reports whether a download is currently running.
func (e *Exporter) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// LastResult returns the most recent artifact while it is retained, or nil.
func (e *Exporter) LastResult() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Download runs one export cycle. A not-ready surface fails with ErrNotReady
// and an overlapping call with ErrBusy. A call starting within the debounce
// window of the previous start is swallowed silently: that is duplicate-
// trigger suppression, not contention, so it is not an error.
func (e *Exporter) Download(ctx context.Context) error {
	e.mu.Lock()
	if !e.surface.Ready() {
		e.mu.Unlock()
		return ErrNotReady
	}
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.cfg.debounce > 0 && !e.lastStart.IsZero() && time.Since(e.lastStart) < e.cfg.debounce {
		e.mu.Unlock()
		return nil
	}
	e.inFlight = true
	e.lastStart = time.Now()
	e.mu.Unlock()

	// The in-flight flag clears on every exit path. The debounce
	// short-circuit above never set it.
	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	e.emit(Status{State: StateGenerating})

	res, err := e.generate(ctx)
	if err != nil {
		e.emit(Status{State: StateError, Message: err.Error()})
		return err
	}

	e.retain(res)
	e.emit(Status{State: StateReady, Base64: res.Base64, FileName: res.FileName})
	return nil
}

// generate runs pagination and assembly against the source generation
// observed at the start; a source change during the run discards the result.
func (e *Exporter) generate(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	version := e.surface.Version()
	src := e.surface.Source()

	capt, err := e.capturerFn()
	if err != nil {
		return nil, err
	}
	asm := e.assemblerFn()

	if err := paginate(ctx, capt, asm, src.Title); err != nil {
		return nil, err
	}
	pdf, err := asm.Finalize()
	if err != nil {
		return nil, err
	}
	if e.surface.Version() != version {
		return nil, ErrSourceChanged
	}

	res := &Result{
		PDF:      pdf,
		Base64:   base64.StdEncoding.EncodeToString(pdf),
		FileName: src.PDFFileName(),
	}
	if err := e.save(res); err != nil {
		return nil, err
	}
	return res, nil
}

// save writes the artifact to the configured output directory, the
// counterpart of triggering a file download.
func (e *Exporter) save(res *Result) error {
	if e.saveFn != nil {
		return e.saveFn(res.FileName, res.PDF)
	}
	if e.cfg.outputDir == "" {
		return nil
	}
	path := filepath.Join(e.cfg.outputDir, res.FileName)
	if err := os.WriteFile(path, res.PDF, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrAssemblyFailure, err)
	}
	return nil
}

// retain keeps the artifact available through LastResult, then drops it and
// reports idle once the retention window closes.
func (e *Exporter) retain(res *Result) {
	e.mu.Lock()
	e.last = res
	e.mu.Unlock()

	time.AfterFunc(e.cfg.retention, func() {
		e.mu.Lock()
		expired := e.last == res
		if expired {
			e.last = nil
		}
		e.mu.Unlock()
		if expired {
			e.emit(Status{State: StateIdle})
		}
	})
}

func (e *Exporter) emit(st Status) {
	if e.status != nil {
		e.status(st)
	}
}
