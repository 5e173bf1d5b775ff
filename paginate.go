package htmlprint

import (
	"context"
	"fmt"
	"math"
)

// pageAssembler accumulates image pages and finalizes them once into a
// single PDF byte stream.
type pageAssembler interface {
	SetTitle(title string)
	AddImagePage(img *Raster, pl placement) error
	Finalize() ([]byte, error)
}

// paginate turns the rendered document into an ordered sequence of pages on
// asm. Title metadata is attached before any page is added. Segments are
// captured strictly in document order and appended one at a time, so peak
// memory is bounded by a single raster.
func paginate(ctx context.Context, capt documentCapturer, asm pageAssembler, title string) error {
	asm.SetTitle(title)

	n, err := capt.MarkerCount(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return paginateMarked(ctx, capt, asm, n)
	}
	return paginateSliced(ctx, capt, asm)
}

// paginateMarked renders one page per non-empty marker-delimited segment.
// n markers split the body into n+1 half-open ranges; whitespace-only ranges
// produce no page, so a document that opens with a marker still yields one
// page per marker.
func paginateMarked(ctx context.Context, capt documentCapturer, asm pageAssembler, n int) error {
	for i := 0; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := capt.CaptureSegment(ctx, i)
		if err != nil {
			return err
		}
		if img == nil {
			continue
		}
		if img.Width <= 0 || img.Height <= 0 {
			return fmt.Errorf("%w: segment %d has no pixels", ErrCaptureFailure, i)
		}

		// Uniform fit to both axes, centered horizontally, bottom-aligned
		// within the margin box.
		scale := math.Min(contentWidthPt/float64(img.Width), contentHeightPt/float64(img.Height))
		w := float64(img.Width) * scale
		h := float64(img.Height) * scale
		pl := placement{
			x: PageMarginPt + (contentWidthPt-w)/2,
			y: PageMarginPt + (contentHeightPt - h),
			w: w,
			h: h,
		}
		if err := asm.AddImagePage(img, pl); err != nil {
			return err
		}
	}
	return nil
}

// paginateSliced rasterizes the whole document once, fits it to the content
// width, and tiles the scaled height into ceil(H/A) pages. Each page draws
// the same image translated upward; the image is positioned, not cropped,
// and the clip keeps the overshooting final window inside the content box.
func paginateSliced(ctx context.Context, capt documentCapturer, asm pageAssembler) error {
	img, err := capt.CaptureDocument(ctx)
	if err != nil {
		return err
	}
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: document capture has no pixels", ErrCaptureFailure)
	}

	scale := contentWidthPt / float64(img.Width)
	scaledH := float64(img.Height) * scale

	for offset := 0.0; offset < scaledH; offset += contentHeightPt {
		if err := ctx.Err(); err != nil {
			return err
		}
		pl := placement{
			x:    PageMarginPt,
			y:    PageMarginPt - offset,
			w:    contentWidthPt,
			h:    scaledH,
			clip: true,
		}
		if err := asm.AddImagePage(img, pl); err != nil {
			return err
		}
	}
	return nil
}
