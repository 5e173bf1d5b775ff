package htmlprint

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

// Mock implementations of the pipeline stage interfaces.

type mockCapturer struct {
	mu        sync.Mutex
	markers   int
	segments  []*Raster // indexed by segment; nil entries are whitespace-only
	document  *Raster
	err       error
	onCapture func() // runs inside each capture call

	segmentCalls  int
	documentCalls int
}

func (m *mockCapturer) MarkerCount(ctx context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.markers, nil
}

func (m *mockCapturer) CaptureSegment(ctx context.Context, i int) (*Raster, error) {
	m.mu.Lock()
	m.segmentCalls++
	hook := m.onCapture
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	if i < 0 || i >= len(m.segments) {
		return nil, nil
	}
	return m.segments[i], nil
}

func (m *mockCapturer) CaptureDocument(ctx context.Context) (*Raster, error) {
	m.mu.Lock()
	m.documentCalls++
	hook := m.onCapture
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.document, nil
}

type assembledPage struct {
	img *Raster
	pl  placement
}

type mockAssembler struct {
	mu        sync.Mutex
	title     string
	events    []string // "title" and "page" in call order
	pages     []assembledPage
	addErr    error
	out       []byte
	finalized bool
}

func (m *mockAssembler) SetTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.title = title
	m.events = append(m.events, "title")
}

func (m *mockAssembler) AddImagePage(img *Raster, pl placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.events = append(m.events, "page")
	m.pages = append(m.pages, assembledPage{img: img, pl: pl})
	return nil
}

func (m *mockAssembler) Finalize() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return nil, ErrFinalized
	}
	m.finalized = true
	if m.out != nil {
		return m.out, nil
	}
	return []byte("%PDF-mock"), nil
}

func raster(w, h int) *Raster {
	return &Raster{PNG: []byte{0}, Width: w, Height: h}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 0.01
}

func TestPaginateMarkedOnePagePerSegment(t *testing.T) {
	a, b, c := raster(800, 600), raster(800, 700), raster(800, 500)
	capt := &mockCapturer{markers: 2, segments: []*Raster{a, b, c}}
	asm := &mockAssembler{}

	if err := paginate(context.Background(), capt, asm, "Report"); err != nil {
		t.Fatalf("paginate() error = %v", err)
	}

	if asm.title != "Report" {
		t.Errorf("title = %q, want %q", asm.title, "Report")
	}
	if len(asm.events) == 0 || asm.events[0] != "title" {
		t.Errorf("events = %v, want title before any page", asm.events)
	}
	if len(asm.pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(asm.pages))
	}
	// Page order follows document order.
	for i, want := range []*Raster{a, b, c} {
		if asm.pages[i].img != want {
			t.Errorf("page %d holds the wrong raster", i)
		}
	}
}

func TestPaginateMarkedSkipsWhitespaceSegments(t *testing.T) {
	// A document that opens with a marker: the leading segment is empty,
	// so one marker still yields exactly one page.
	capt := &mockCapturer{markers: 1, segments: []*Raster{nil, raster(800, 600)}}
	asm := &mockAssembler{}

	if err := paginate(context.Background(), capt, asm, ""); err != nil {
		t.Fatalf("paginate() error = %v", err)
	}
	if len(asm.pages) != 1 {
		t.Errorf("pages = %d, want 1", len(asm.pages))
	}
}

func TestPaginateMarkedFitAndPlacement(t *testing.T) {
	tests := []struct {
		name           string
		w, h           int
		wantW, wantH   float64
		wantX, wantY   float64
	}{
		{
			// Width-bound: scale = 523.28/1000.
			name:  "wide image",
			w:     1000,
			h:     500,
			wantW: contentWidthPt,
			wantH: 500 * contentWidthPt / 1000,
			wantX: PageMarginPt,
			wantY: PageMarginPt + contentHeightPt - 500*contentWidthPt/1000,
		},
		{
			// Height-bound: scale = 769.89/2000, centered horizontally.
			name:  "tall image",
			w:     500,
			h:     2000,
			wantW: 500 * contentHeightPt / 2000,
			wantH: contentHeightPt,
			wantX: PageMarginPt + (contentWidthPt-500*contentHeightPt/2000)/2,
			wantY: PageMarginPt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capt := &mockCapturer{markers: 1, segments: []*Raster{raster(tt.w, tt.h), nil}}
			asm := &mockAssembler{}
			if err := paginate(context.Background(), capt, asm, ""); err != nil {
				t.Fatalf("paginate() error = %v", err)
			}
			if len(asm.pages) != 1 {
				t.Fatalf("pages = %d, want 1", len(asm.pages))
			}
			pl := asm.pages[0].pl
			if !approx(pl.w, tt.wantW) || !approx(pl.h, tt.wantH) {
				t.Errorf("size = (%.2f, %.2f), want (%.2f, %.2f)", pl.w, pl.h, tt.wantW, tt.wantH)
			}
			if !approx(pl.x, tt.wantX) || !approx(pl.y, tt.wantY) {
				t.Errorf("origin = (%.2f, %.2f), want (%.2f, %.2f)", pl.x, pl.y, tt.wantX, tt.wantY)
			}
			if pl.clip {
				t.Error("marker-mode pages must not clip")
			}
		})
	}
}

func TestPaginateSlicedPageCount(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		wantPages int
	}{
		{name: "single page", w: 1000, h: 1000, wantPages: 1},
		{name: "just over one page", w: 1000, h: 1480, wantPages: 2},
		{name: "several pages", w: 1000, h: 5734, wantPages: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capt := &mockCapturer{document: raster(tt.w, tt.h)}
			asm := &mockAssembler{}
			if err := paginate(context.Background(), capt, asm, ""); err != nil {
				t.Fatalf("paginate() error = %v", err)
			}

			scale := contentWidthPt / float64(tt.w)
			want := int(math.Ceil(float64(tt.h) * scale / contentHeightPt))
			if want != tt.wantPages {
				t.Fatalf("test data inconsistent: computed %d, expected %d", want, tt.wantPages)
			}
			if len(asm.pages) != tt.wantPages {
				t.Errorf("pages = %d, want %d", len(asm.pages), tt.wantPages)
			}
		})
	}
}

func TestPaginateSlicedOffsetsAndClip(t *testing.T) {
	img := raster(1000, 5734)
	capt := &mockCapturer{document: img}
	asm := &mockAssembler{}

	if err := paginate(context.Background(), capt, asm, ""); err != nil {
		t.Fatalf("paginate() error = %v", err)
	}

	scale := contentWidthPt / 1000.0
	scaledH := 5734 * scale
	for i, page := range asm.pages {
		if page.img != img {
			t.Errorf("page %d must reuse the single document raster", i)
		}
		pl := page.pl
		if !pl.clip {
			t.Errorf("page %d: sliced pages must clip", i)
		}
		if !approx(pl.x, PageMarginPt) || !approx(pl.w, contentWidthPt) {
			t.Errorf("page %d: x=%.2f w=%.2f, want margin-aligned full width", i, pl.x, pl.w)
		}
		wantY := PageMarginPt - float64(i)*contentHeightPt
		if !approx(pl.y, wantY) {
			t.Errorf("page %d: y = %.2f, want %.2f", i, pl.y, wantY)
		}
		if !approx(pl.h, scaledH) {
			t.Errorf("page %d: h = %.2f, want %.2f", i, pl.h, scaledH)
		}
	}
}

func TestPaginateCaptureErrorPropagates(t *testing.T) {
	wantErr := errors.New("capture blew up")
	capt := &mockCapturer{markers: 1, err: wantErr}
	asm := &mockAssembler{}

	if err := paginate(context.Background(), capt, asm, ""); !errors.Is(err, wantErr) {
		t.Errorf("paginate() error = %v, want %v", err, wantErr)
	}
}

func TestPaginateAssemblerErrorPropagates(t *testing.T) {
	wantErr := errors.New("assembly blew up")
	capt := &mockCapturer{markers: 0, document: raster(800, 600)}
	asm := &mockAssembler{addErr: wantErr}

	if err := paginate(context.Background(), capt, asm, ""); !errors.Is(err, wantErr) {
		t.Errorf("paginate() error = %v, want %v", err, wantErr)
	}
}

func TestPaginateEmptyDocumentCapture(t *testing.T) {
	capt := &mockCapturer{markers: 0, document: nil}
	asm := &mockAssembler{}

	if err := paginate(context.Background(), capt, asm, ""); !errors.Is(err, ErrCaptureFailure) {
		t.Errorf("paginate() error = %v, want %v", err, ErrCaptureFailure)
	}
}

func TestPaginateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	capt := &mockCapturer{markers: 2, segments: []*Raster{raster(1, 1), raster(1, 1), raster(1, 1)}}
	asm := &mockAssembler{}

	if err := paginate(ctx, capt, asm, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("paginate() error = %v, want %v", err, context.Canceled)
	}
	if len(asm.pages) != 0 {
		t.Errorf("pages = %d, want 0 after cancellation", len(asm.pages))
	}
}
