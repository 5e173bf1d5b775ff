// Package htmlprint converts a block of trusted HTML into a paginated,
// rasterized PDF using headless Chrome, and drives that pipeline through an
// idempotent print/download command protocol.
//
// # Quick Start
//
// Load a document into a surface, then export it:
//
//	surface := htmlprint.NewSurface()
//	defer surface.Close()
//
//	err := surface.SetSource(ctx, htmlprint.Source{
//	    HTML:     "<h1>Invoice</h1><div id=\"page\"></div><p>Details</p>",
//	    Title:    "Invoice",
//	    FileName: "invoice",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	exporter := htmlprint.NewExporter(surface, htmlprint.WithOutputDir("."))
//	if err := exporter.Download(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pagination
//
// Elements with id "page" or "page-<suffix>" delimit PDF page boundaries.
// Each marker-delimited segment is rasterized at 2x on a white background and
// placed on its own A4 page, scaled to fit. Without markers the whole
// document is rasterized once and sliced into fixed-height pages. The output
// is an image stream: text in the PDF is not selectable.
//
// The id "line-break" is a layout-only convention for the document author and
// never affects pagination.
//
// # Command Protocol
//
// External callers trigger exports through a Commander, which deduplicates on
// the exact raw payload, queues against readiness, and acknowledges each
// distinct request exactly once:
//
//	commander := htmlprint.NewCommander(surface, exporter, printer,
//	    htmlprint.WithAckFunc(sendAck))
//	commander.Submit(ctx, []byte(`{"id":"42","action":"download"}`))
//
// # Browser Requirements
//
// Rendering requires Chrome/Chromium. The go-rod library downloads a managed
// Chromium on first run. Set ROD_BROWSER_BIN to use a pre-installed binary;
// in CI and containers the sandbox is disabled automatically.
package htmlprint
