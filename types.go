package htmlprint

import (
	"path/filepath"
	"strings"
)

// PDF page geometry in points (A4 portrait).
const (
	PageWidthPt  = 595.28
	PageHeightPt = 841.89
	PageMarginPt = 36.0
)

// Content box available to placed images after margins.
const (
	contentWidthPt  = PageWidthPt - 2*PageMarginPt
	contentHeightPt = PageHeightPt - 2*PageMarginPt
)

// captureScale is the device pixel ratio applied during rasterization.
const captureScale = 2

// Page-marker id convention. Elements with id "page" or "page-<suffix>"
// delimit PDF page boundaries, at any nesting depth. "line-break" is a
// layout-only token with no effect on pagination.
const (
	pageMarkerID     = "page"
	pageMarkerPrefix = "page-"
	lineBreakID      = "line-break"
)

// DefaultFileName is used when the source does not name its download target.
const DefaultFileName = "document"

// Source is the document payload for one render cycle. A new Source
// invalidates readiness and forces the surface to reload.
type Source struct {
	HTML        string // trusted HTML body content (required)
	Title       string // PDF metadata title and <title> of the surface
	CustomStyle string // CSS injected into the surface <head> (optional)
	FileName    string // download target name, ".pdf" appended if missing
}

// PDFFileName returns the download file name with a guaranteed ".pdf"
// suffix. The check is case-insensitive, so "Report.PDF" is left alone.
func (s Source) PDFFileName() string {
	name := s.FileName
	if name == "" {
		name = DefaultFileName
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// Raster is one captured bitmap with its pixel dimensions. Rasters are
// ephemeral: the pagination engine consumes each one before the next
// capture starts.
type Raster struct {
	PNG    []byte
	Width  int
	Height int
}

// placement positions a raster on a fixed-size page, in points. A negative
// y walks the image upward for sliced pages; clip restricts drawing to the
// content box so overshooting slices stay inside the margins.
type placement struct {
	x, y, w, h float64
	clip       bool
}
