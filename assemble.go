package htmlprint

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Compile-time interface check
var _ pageAssembler = (*pdfAssembler)(nil)

// pdfAssembler builds the output document page by page with gofpdf.
// Finalize is terminal: the byte stream is produced once and the assembler
// rejects anything after it.
type pdfAssembler struct {
	doc       *gofpdf.Fpdf
	names     map[*Raster]string
	nextImage int
	finalized bool
}

func newPDFAssembler() *pdfAssembler {
	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetMargins(PageMarginPt, PageMarginPt, PageMarginPt)
	doc.SetAutoPageBreak(false, 0)
	return &pdfAssembler{doc: doc, names: make(map[*Raster]string)}
}

// SetTitle attaches document metadata. Must be called before pages are added.
func (a *pdfAssembler) SetTitle(title string) {
	a.doc.SetTitle(title, true)
}

// AddImagePage appends one page holding img at the given placement. The same
// raster may be placed on several pages (sliced mode); it is registered with
// the document only once.
func (a *pdfAssembler) AddImagePage(img *Raster, pl placement) error {
	if a.finalized {
		return ErrFinalized
	}

	name, ok := a.names[img]
	if !ok {
		name = fmt.Sprintf("raster%d", a.nextImage)
		a.nextImage++
		a.doc.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(img.PNG))
		a.names[img] = name
	}

	a.doc.AddPage()
	if pl.clip {
		a.doc.ClipRect(PageMarginPt, PageMarginPt, contentWidthPt, contentHeightPt, false)
	}
	a.doc.ImageOptions(name, pl.x, pl.y, pl.w, pl.h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	if pl.clip {
		a.doc.ClipEnd()
	}

	if a.doc.Err() {
		return fmt.Errorf("%w: %v", ErrAssemblyFailure, a.doc.Error())
	}
	return nil
}

// Finalize produces the PDF byte stream. Further AddImagePage or Finalize
// calls fail with ErrFinalized.
func (a *pdfAssembler) Finalize() ([]byte, error) {
	if a.finalized {
		return nil, ErrFinalized
	}
	a.finalized = true

	var buf bytes.Buffer
	if err := a.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssemblyFailure, err)
	}

	// Copy out of the encoder's buffer so the returned stream stays immutable.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
