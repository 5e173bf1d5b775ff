package htmlprint

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// renderSurface is the read side of the rendering surface consumed by the
// exporter and the command state machine.
type renderSurface interface {
	Ready() bool
	Version() uint64
	Source() Source
}

// Compile-time interface check
var _ renderSurface = (*Surface)(nil)

// defaultLoadTimeout bounds how long a surface waits for a document to load.
const defaultLoadTimeout = 30 * time.Second

// Surface hosts the trusted HTML in an isolated, script-disabled Chrome
// page and exposes its content tree and scroll geometry to the pipeline.
//
// Readiness is false from every SetSource until the new document finishes
// loading. Every SetSource also bumps a version counter; pipeline results
// produced against a stale version are discarded.
type Surface struct {
	timeout time.Duration

	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	src      Source
	ready    bool
	version  uint64
	onChange func()
}

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithLoadTimeout sets the document load timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithLoadTimeout(d time.Duration) SurfaceOption {
	if d <= 0 {
		panic("htmlprint: WithLoadTimeout duration must be positive")
	}
	return func(s *Surface) {
		s.timeout = d
	}
}

// NewSurface creates a Surface. The browser is launched lazily on the first
// SetSource, not here.
func NewSurface(opts ...SurfaceOption) *Surface {
	s := &Surface{timeout: defaultLoadTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers f to run after every readiness transition. The command
// state machine uses this to retry queued requests.
func (s *Surface) OnChange(f func()) {
	s.mu.Lock()
	s.onChange = f
	s.mu.Unlock()
}

// Ready reports whether the current source has finished loading.
func (s *Surface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Version returns the source generation counter.
func (s *Surface) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Source returns the current document source.
func (s *Surface) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// SetSource replaces the document and reloads the surface. Readiness drops
// immediately and is restored only after the new document finishes loading.
// A SetSource that loses the race to a newer call returns ErrSourceChanged
// and leaves readiness to the winner.
func (s *Surface) SetSource(ctx context.Context, src Source) error {
	s.mu.Lock()
	s.version++
	v := s.version
	s.src = src
	s.ready = false
	notify := s.onChange
	page, err := s.ensurePage()
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	if err != nil {
		return err
	}

	p := page.Context(ctx)
	if err := p.SetDocumentContent(buildDocument(src)); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := p.Timeout(s.timeout).WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	s.mu.Lock()
	stale := s.version != v
	if !stale {
		s.ready = true
	}
	notify = s.onChange
	s.mu.Unlock()

	if stale {
		return ErrSourceChanged
	}
	if notify != nil {
		notify()
	}
	return nil
}

// Close releases browser resources.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.page = nil
	return err
}

// ensurePage lazily launches the browser and creates the isolated page.
// Script execution is disabled before any content loads. Callers hold s.mu.
func (s *Surface) ensurePage() (*rod.Page, error) {
	if s.page != nil {
		return s.page, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}

	s.browser = browser
	s.page = page
	return page, nil
}

// capturePage returns the live page bound to ctx, or ErrNotReady if no
// document has finished loading.
func (s *Surface) capturePage(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil || !s.ready {
		return nil, ErrNotReady
	}
	return s.page.Context(ctx), nil
}

// prepareCapture sizes the viewport to the document's natural scroll
// dimensions at the capture scale and forces a white background, so captures
// are neither clipped nor truncated by reflow.
func (s *Surface) prepareCapture(ctx context.Context) error {
	p, err := s.capturePage(ctx)
	if err != nil {
		return err
	}

	res, err := p.Eval(jsScrollSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	w := res.Value.Get("w").Int()
	h := res.Value.Get("h").Int()

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: captureScale,
		Mobile:            false,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}

	alpha := 1.0
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: 255, G: 255, B: 255, A: &alpha},
	}).Call(p); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return nil
}

// markerCount returns the number of page markers in document order.
func (s *Surface) markerCount(ctx context.Context) (int, error) {
	p, err := s.capturePage(ctx)
	if err != nil {
		return 0, err
	}
	res, err := p.Eval(jsMarkerCount)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return res.Value.Int(), nil
}

// buildSegmentHost clones the index-th marker-delimited node range into an
// offscreen host element. It reports false when the range holds nothing but
// whitespace text, in which case no host is attached.
func (s *Surface) buildSegmentHost(ctx context.Context, index int, hostID string) (bool, error) {
	p, err := s.capturePage(ctx)
	if err != nil {
		return false, err
	}
	res, err := p.Eval(jsBuildSegmentHost, index, hostID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return res.Value.Bool(), nil
}

// removeSegmentHost detaches the offscreen host. Errors are ignored: the
// host is invisible and the next SetSource replaces the whole document.
func (s *Surface) removeSegmentHost(ctx context.Context, hostID string) {
	p, err := s.capturePage(ctx)
	if err != nil {
		return
	}
	_, _ = p.Eval(jsRemoveSegmentHost, hostID)
}

// screenshotElement captures a single element as PNG.
func (s *Surface) screenshotElement(ctx context.Context, selector string) ([]byte, error) {
	p, err := s.capturePage(ctx)
	if err != nil {
		return nil, err
	}
	el, err := p.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return data, nil
}

// screenshotDocument captures the full document as PNG.
func (s *Surface) screenshotDocument(ctx context.Context) ([]byte, error) {
	p, err := s.capturePage(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return data, nil
}

// sanitizeStyle escapes "</" so a custom style cannot close its <style>
// element and break out of the document head.
func sanitizeStyle(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// baseStyle neutralizes the control tokens: page markers occupy no space in
// the rendered flow and line-break tokens show as one empty line. Attribute
// selectors reach every occurrence even when an id repeats.
var baseStyle = fmt.Sprintf(
	"[id=%q], [id^=%q] { display: block; height: 0; margin: 0; padding: 0; }\n"+
		"[id=%q] { display: block; height: 1em; }",
	pageMarkerID, pageMarkerPrefix, lineBreakID)

// buildDocument wraps the trusted HTML body in a complete HTML5 document
// with the title escaped and the custom style sanitized.
func buildDocument(src Source) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(src.Title))
	b.WriteString("</title>\n")
	b.WriteString("<style>\n")
	b.WriteString(baseStyle)
	b.WriteString("\n</style>\n")
	if src.CustomStyle != "" {
		b.WriteString("<style>\n")
		b.WriteString(sanitizeStyle(src.CustomStyle))
		b.WriteString("\n</style>\n")
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(src.HTML) // trusted by contract
	b.WriteString("\n</body>\n</html>")
	return b.String()
}
