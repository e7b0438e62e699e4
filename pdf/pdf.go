package pdf

import "context"

// RawImage is one embedded raster resource as produced by the PDF backend:
// the payload re-encoded as PNG plus the metadata the backend reports.
// Colorspace is the backend's raw colorspace token (e.g. "gray", "rgb",
// "cmyk", "index"); mapping to the closed enumeration happens downstream.
type RawImage struct {
	Data       []byte
	Colorspace string
	Width      int
	Height     int
}

// Document is an open PDF. Implementations are not safe for concurrent use;
// each worker opens its own handle.
type Document interface {
	// Name returns the document identifier (base filename without extension).
	Name() string
	// PageCount returns the number of pages.
	PageCount() int
	// Text returns the native text layer of a zero-indexed page, verbatim.
	Text(ctx context.Context, pageNum int) (string, error)
	// Render rasterizes a zero-indexed page to PNG at the given resolution.
	Render(ctx context.Context, pageNum int, dpi int) ([]byte, error)
	// Images lists the embedded raster resources of a zero-indexed page in
	// extraction order, one entry per reference occurrence.
	Images(ctx context.Context, pageNum int) ([]RawImage, error)
	// Close releases the handle. Safe to call more than once.
	Close() error
}

// Opener opens PDF documents. It exists so the pipeline can be tested
// against an in-memory fake.
type Opener interface {
	Open(path string) (Document, error)
}
