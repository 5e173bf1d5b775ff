package htmlprint

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
)

// documentCapturer is the pagination engine's view of the rasterizer.
type documentCapturer interface {
	// MarkerCount returns the number of page markers in document order.
	MarkerCount(ctx context.Context) (int, error)

	// CaptureSegment rasterizes the index-th marker-delimited segment.
	// A nil Raster with nil error means the segment held only whitespace
	// and produces no page.
	CaptureSegment(ctx context.Context, index int) (*Raster, error)

	// CaptureDocument rasterizes the entire document as one bitmap.
	CaptureDocument(ctx context.Context) (*Raster, error)
}

// Compile-time interface check
var _ documentCapturer = (*segmentRasterizer)(nil)

// Browser-side scripts. Markers are matched by id at any nesting depth;
// segment i is the half-open range from marker i-1 (or document start) to
// marker i (or document end), built with a DOM Range so partially covered
// subtrees clone correctly.
var (
	jsMarkers = fmt.Sprintf(
		`Array.from(document.querySelectorAll('[id]')).filter((el) => el.id === %q || el.id.indexOf(%q) === 0)`,
		pageMarkerID, pageMarkerPrefix)

	jsScrollSize = `() => ({
		w: document.documentElement.scrollWidth,
		h: document.documentElement.scrollHeight,
	})`

	jsMarkerCount = `() => ` + jsMarkers + `.length`

	jsBuildSegmentHost = `(index, hostId) => {
		const markers = ` + jsMarkers + `;
		const body = document.body;
		const range = document.createRange();
		if (index === 0) {
			range.setStart(body, 0);
		} else {
			range.setStartAfter(markers[index - 1]);
		}
		if (index === markers.length) {
			range.setEnd(body, body.childNodes.length);
		} else {
			range.setEndBefore(markers[index]);
		}
		const frag = range.cloneContents();
		const nodes = Array.from(frag.childNodes).filter(
			(n) => n.nodeType !== Node.TEXT_NODE || n.textContent.trim() !== '');
		if (nodes.length === 0) {
			return false;
		}
		const host = document.createElement('div');
		host.id = hostId;
		host.style.position = 'absolute';
		host.style.left = '-10000px';
		host.style.top = '0';
		host.style.background = '#ffffff';
		host.style.width = document.documentElement.scrollWidth + 'px';
		nodes.forEach((n) => host.appendChild(n));
		body.appendChild(host);
		return true;
	}`

	jsRemoveSegmentHost = `(hostId) => {
		const host = document.getElementById(hostId);
		if (host) {
			host.remove();
		}
	}`
)

// segmentRasterizer captures node ranges of the live surface as 2x bitmaps
// on a white background. It snapshots the surface version at creation; any
// capture that observes a newer version fails with ErrSourceChanged instead
// of returning stale pixels.
type segmentRasterizer struct {
	surface  *Surface
	version  uint64
	prepared bool
}

func newSegmentRasterizer(s *Surface) *segmentRasterizer {
	return &segmentRasterizer{surface: s, version: s.Version()}
}

func (r *segmentRasterizer) check() error {
	if r.surface.Version() != r.version {
		return ErrSourceChanged
	}
	if !r.surface.Ready() {
		return ErrNotReady
	}
	return nil
}

func (r *segmentRasterizer) prepare(ctx context.Context) error {
	if r.prepared {
		return nil
	}
	if err := r.surface.prepareCapture(ctx); err != nil {
		return err
	}
	r.prepared = true
	return nil
}

func (r *segmentRasterizer) MarkerCount(ctx context.Context) (int, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	return r.surface.markerCount(ctx)
}

func (r *segmentRasterizer) CaptureSegment(ctx context.Context, index int) (*Raster, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if err := r.prepare(ctx); err != nil {
		return nil, err
	}

	hostID := fmt.Sprintf("htmlprint-capture-%d", index)
	ok, err := r.surface.buildSegmentHost(ctx, index, hostID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Whitespace-only segment: no page.
		return nil, nil
	}
	// The host must not outlive this capture, even on failure or a
	// cancelled context.
	defer r.surface.removeSegmentHost(context.WithoutCancel(ctx), hostID)

	data, err := r.surface.screenshotElement(ctx, "#"+hostID)
	if err != nil {
		return nil, err
	}
	if err := r.check(); err != nil {
		return nil, err
	}
	return decodeRaster(data)
}

func (r *segmentRasterizer) CaptureDocument(ctx context.Context) (*Raster, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if err := r.prepare(ctx); err != nil {
		return nil, err
	}
	data, err := r.surface.screenshotDocument(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.check(); err != nil {
		return nil, err
	}
	return decodeRaster(data)
}

// decodeRaster reads the pixel dimensions from a PNG capture.
func decodeRaster(data []byte) (*Raster, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailure, err)
	}
	return &Raster{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}
