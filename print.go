package htmlprint

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// printMarginInches is the uniform margin for the native print path.
const printMarginInches = 0.5

// pointsPerInch converts the shared A4 constants for Chrome's inch-based API.
const pointsPerInch = 72.0

// Compile-time interface check
var _ printTrigger = (*Printer)(nil)

// Printer is the simpler print path: Chrome's own print-to-PDF of the live
// surface document, with no segment assembly. Output lands next to the
// download target with a "-print" suffix.
type Printer struct {
	surface   *Surface
	outputDir string
}

// NewPrinter creates a Printer writing into outputDir. An empty outputDir
// renders but discards the bytes, which is still useful as a print probe.
func NewPrinter(surface *Surface, outputDir string) *Printer {
	return &Printer{surface: surface, outputDir: outputDir}
}

// Print renders the current document with Chrome's native print pipeline.
func (p *Printer) Print(ctx context.Context) error {
	page, err := p.surface.capturePage(ctx)
	if err != nil {
		return err
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(PageWidthPt / pointsPerInch),
		PaperHeight:     floatPtr(PageHeightPt / pointsPerInch),
		MarginTop:       floatPtr(printMarginInches),
		MarginBottom:    floatPtr(printMarginInches),
		MarginLeft:      floatPtr(printMarginInches),
		MarginRight:     floatPtr(printMarginInches),
		PrintBackground: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}

	if p.outputDir == "" {
		return nil
	}
	name := printFileName(p.surface.Source())
	if err := os.WriteFile(filepath.Join(p.outputDir, name), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	return nil
}

// printFileName derives "<name>-print.pdf" from the download target name.
func printFileName(src Source) string {
	name := src.PDFFileName()
	return strings.TrimSuffix(name, filepath.Ext(name)) + "-print.pdf"
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
