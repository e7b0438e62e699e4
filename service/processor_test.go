package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tieubaoca/docrag-be/ocr"
	"github.com/tieubaoca/docrag-be/pdf"
	"github.com/tieubaoca/docrag-be/types"
	"github.com/tieubaoca/docrag-be/utils"
)

// testPNG renders a small valid PNG so preprocessing has something to chew on.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakePage struct {
	text      string
	textErr   error
	renderErr error
	images    []pdf.RawImage
	imagesErr error
}

type fakeDocument struct {
	name     string
	pages    []fakePage
	rendered []byte
	closed   int
}

func (d *fakeDocument) Name() string   { return d.name }
func (d *fakeDocument) PageCount() int { return len(d.pages) }
func (d *fakeDocument) Close() error   { d.closed++; return nil }

func (d *fakeDocument) Text(_ context.Context, pageNum int) (string, error) {
	p := d.pages[pageNum]
	return p.text, p.textErr
}

func (d *fakeDocument) Render(_ context.Context, pageNum int, dpi int) ([]byte, error) {
	if err := d.pages[pageNum].renderErr; err != nil {
		return nil, err
	}
	return d.rendered, nil
}

func (d *fakeDocument) Images(_ context.Context, pageNum int) ([]pdf.RawImage, error) {
	p := d.pages[pageNum]
	return p.images, p.imagesErr
}

type fakeOpener struct {
	docs    map[string]*fakeDocument
	openErr map[string]error
}

func (o *fakeOpener) Open(path string) (pdf.Document, error) {
	name := utils.FileNameWithoutExt(path)
	if err := o.openErr[name]; err != nil {
		return nil, &types.DocumentOpenError{Path: path, Err: err}
	}
	doc, ok := o.docs[name]
	if !ok {
		return nil, &types.DocumentOpenError{Path: path, Err: os.ErrNotExist}
	}
	return doc, nil
}

type stubEngine struct {
	text  string
	err   error
	calls int
	langs []string
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Recognize(_ context.Context, in ocr.Input) (string, error) {
	e.calls++
	e.langs = in.Languages
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

func testConfig() types.ProcessingConfig {
	cfg := types.DefaultProcessingConfig
	cfg.ChunkSize = 50
	cfg.ChunkOverlap = 10
	cfg.DPI = 72
	return cfg
}

func newTestProcessor(t *testing.T, cfg types.ProcessingConfig, opener pdf.Opener, engine ocr.Engine) *DocumentProcessor {
	t.Helper()
	p, err := NewDocumentProcessor(cfg, opener, engine)
	if err != nil {
		t.Fatalf("NewDocumentProcessor() error = %v", err)
	}
	return p
}

func TestNewDocumentProcessorValidation(t *testing.T) {
	engine := &stubEngine{}
	opener := &fakeOpener{}
	for _, tt := range []struct {
		name   string
		mutate func(*types.ProcessingConfig)
	}{
		{"zero chunk size", func(c *types.ProcessingConfig) { c.ChunkSize = 0 }},
		{"overlap >= size", func(c *types.ProcessingConfig) { c.ChunkOverlap = c.ChunkSize }},
		{"negative overlap", func(c *types.ProcessingConfig) { c.ChunkOverlap = -1 }},
		{"zero dpi", func(c *types.ProcessingConfig) { c.DPI = 0 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewDocumentProcessor(cfg, opener, engine)
			var confErr *types.ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestProcessSinglePageDirectText(t *testing.T) {
	doc := &fakeDocument{
		name:     "manual",
		pages:    []fakePage{{text: "the quick brown fox jumps over the lazy dog"}},
		rendered: testPNG(t, 16, 16),
	}
	engine := &stubEngine{text: "should never be used"}
	p := newTestProcessor(t, testConfig(), &fakeOpener{}, engine)

	page := p.ProcessSinglePage(context.Background(), doc, 0, "manual")
	if !page.HasText {
		t.Fatal("expected has_text")
	}
	if len(page.TextChunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(page.TextChunks))
	}
	if page.TextChunks[0].ContentType != types.ContentTypeText {
		t.Errorf("content_type = %q, want text", page.TextChunks[0].ContentType)
	}
	if page.OCRText != "" {
		t.Errorf("ocr_text should stay empty, got %q", page.OCRText)
	}
	if engine.calls != 0 {
		t.Errorf("OCR must be skipped when direct text exists, got %d calls", engine.calls)
	}
	if page.PageImage == "" {
		t.Error("expected full-page raster")
	}
}

func TestProcessSinglePageOCRFallback(t *testing.T) {
	doc := &fakeDocument{
		name:     "scan",
		pages:    []fakePage{{text: "   \n"}},
		rendered: testPNG(t, 16, 16),
	}
	engine := &stubEngine{text: "recovered scanned words"}
	cfg := testConfig()
	cfg.OCRLang = "eng+fra"
	p := newTestProcessor(t, cfg, &fakeOpener{}, engine)

	page := p.ProcessSinglePage(context.Background(), doc, 0, "scan")
	if engine.calls != 1 {
		t.Fatalf("expected 1 OCR call, got %d", engine.calls)
	}
	if len(engine.langs) != 2 || engine.langs[0] != "eng" || engine.langs[1] != "fra" {
		t.Errorf("language spec not split: %v", engine.langs)
	}
	if !page.HasText {
		t.Fatal("expected has_text after OCR")
	}
	if page.OCRText != "recovered scanned words" {
		t.Errorf("ocr_text = %q", page.OCRText)
	}
	if len(page.TextChunks) != 1 || page.TextChunks[0].ContentType != types.ContentTypeOCR {
		t.Fatalf("expected one ocr chunk, got %+v", page.TextChunks)
	}
}

func TestProcessSinglePageOCRDisabled(t *testing.T) {
	doc := &fakeDocument{
		name:     "scan",
		pages:    []fakePage{{text: ""}},
		rendered: testPNG(t, 16, 16),
	}
	engine := &stubEngine{text: "should not run"}
	cfg := testConfig()
	cfg.EnableOCR = false
	p := newTestProcessor(t, cfg, &fakeOpener{}, engine)

	page := p.ProcessSinglePage(context.Background(), doc, 0, "scan")
	if engine.calls != 0 {
		t.Fatalf("OCR disabled but engine was called %d times", engine.calls)
	}
	if page.HasText || len(page.TextChunks) != 0 {
		t.Fatalf("expected no text, got %+v", page)
	}
}

func TestProcessSinglePageOCRFailureDegrades(t *testing.T) {
	doc := &fakeDocument{
		name:     "scan",
		pages:    []fakePage{{text: ""}},
		rendered: testPNG(t, 16, 16),
	}
	engine := &stubEngine{err: fmt.Errorf("no trained data: %w", types.ErrOCRUnavailable)}
	p := newTestProcessor(t, testConfig(), &fakeOpener{}, engine)

	page := p.ProcessSinglePage(context.Background(), doc, 0, "scan")
	if page.HasText || len(page.TextChunks) != 0 || page.OCRText != "" {
		t.Fatalf("OCR failure must degrade to empty text, got %+v", page)
	}
}

func TestProcessSinglePageRenderFailure(t *testing.T) {
	doc := &fakeDocument{
		name:  "broken",
		pages: []fakePage{{text: "", renderErr: errors.New("corrupt page")}},
	}
	engine := &stubEngine{text: "unreachable"}
	p := newTestProcessor(t, testConfig(), &fakeOpener{}, engine)

	page := p.ProcessSinglePage(context.Background(), doc, 0, "broken")
	if page.PageImage != "" {
		t.Error("render failed, page_image must be empty")
	}
	if engine.calls != 0 {
		t.Error("OCR must be skipped without a rendered bitmap")
	}
	if page.HasText {
		t.Error("expected has_text=false")
	}
}

func TestExtractImagesMetadataAndSkip(t *testing.T) {
	imgData := testPNG(t, 8, 4)
	doc := &fakeDocument{
		name: "figures",
		pages: []fakePage{{
			text: "some body text for the page",
			images: []pdf.RawImage{
				{Data: imgData, Colorspace: "rgb", Width: 8, Height: 4},
				{Data: imgData, Colorspace: "index"}, // unsupported, skipped
				{Data: []byte("garbage"), Colorspace: "gray"},
				{Data: imgData, Colorspace: "cmyk", Width: 8, Height: 4},
			},
		}},
		rendered: testPNG(t, 16, 16),
	}
	p := newTestProcessor(t, testConfig(), &fakeOpener{}, &stubEngine{})

	page := p.ProcessSinglePage(context.Background(), doc, 0, "figures")
	if !page.HasImages {
		t.Fatal("expected has_images")
	}
	if len(page.Images) != 2 {
		t.Fatalf("expected 2 decoded images, got %d", len(page.Images))
	}
	first, second := page.Images[0], page.Images[1]
	if first.ImageIndex != 0 || second.ImageIndex != 3 {
		t.Errorf("image_index must follow extraction order with gaps for skips, got %d and %d", first.ImageIndex, second.ImageIndex)
	}
	if first.Colorspace != types.ColorspaceRGB || second.Colorspace != types.ColorspaceCMYK {
		t.Errorf("unexpected colorspaces: %q %q", first.Colorspace, second.Colorspace)
	}
	if first.Width != 8 || first.Height != 4 {
		t.Errorf("dimensions must come from the decoded payload, got %dx%d", first.Width, first.Height)
	}
	if first.Format != "png" {
		t.Errorf("format = %q, want png", first.Format)
	}
	if first.ImageData == "" {
		t.Error("expected base64 payload")
	}
}

func TestProcessPDFFileOpenFailure(t *testing.T) {
	opener := &fakeOpener{openErr: map[string]error{"missing": os.ErrNotExist}}
	p := newTestProcessor(t, testConfig(), opener, &stubEngine{})

	_, err := p.ProcessPDFFile(context.Background(), "/docs/missing.pdf")
	var openErr *types.DocumentOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected DocumentOpenError, got %v", err)
	}
}

func TestProcessPDFFilePageOrderAndClose(t *testing.T) {
	doc := &fakeDocument{
		name: "manual",
		pages: []fakePage{
			{text: "page zero text"},
			{text: ""},
			{text: "page two text"},
		},
		rendered: testPNG(t, 16, 16),
	}
	opener := &fakeOpener{docs: map[string]*fakeDocument{"manual": doc}}
	cfg := testConfig()
	cfg.EnableOCR = false
	p := newTestProcessor(t, cfg, opener, &stubEngine{})

	pages, err := p.ProcessPDFFile(context.Background(), "/docs/manual.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, page := range pages {
		if page.PageNum != i {
			t.Errorf("page %d has page_num %d", i, page.PageNum)
		}
		if page.DocName != "manual" {
			t.Errorf("page %d has doc_name %q", i, page.DocName)
		}
	}
	if pages[1].HasText {
		t.Error("empty page must report has_text=false")
	}
	if doc.closed != 1 {
		t.Errorf("document closed %d times, want 1", doc.closed)
	}
}

func TestProcessPDFFileCancellation(t *testing.T) {
	doc := &fakeDocument{
		name:     "manual",
		pages:    []fakePage{{text: "a"}, {text: "b"}},
		rendered: testPNG(t, 16, 16),
	}
	opener := &fakeOpener{docs: map[string]*fakeDocument{"manual": doc}}
	p := newTestProcessor(t, testConfig(), opener, &stubEngine{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages, err := p.ProcessPDFFile(ctx, "/docs/manual.pdf")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if pages != nil {
		t.Error("cancelled run must discard partial results")
	}
	if doc.closed != 1 {
		t.Errorf("document must be closed on cancellation, closed %d times", doc.closed)
	}
}

func TestProcessPDFFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.pdf", "corrupt.pdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	rendered := testPNG(t, 16, 16)
	opener := &fakeOpener{
		docs: map[string]*fakeDocument{
			"a": {name: "a", pages: []fakePage{{text: "alpha one"}, {text: "alpha two"}}, rendered: rendered},
			"b": {name: "b", pages: []fakePage{{text: "beta one"}}, rendered: rendered},
		},
		openErr: map[string]error{"corrupt": errors.New("bad xref")},
	}
	cfg := testConfig()
	cfg.EnableOCR = false
	cfg.MaxWorkers = 3
	p := newTestProcessor(t, cfg, opener, &stubEngine{})

	pages, failures, err := p.ProcessPDFFolder(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	// a.pdf sorts before b.pdf; output order must follow file order.
	wantDocs := []string{"a", "a", "b"}
	for i, page := range pages {
		if page.DocName != wantDocs[i] {
			t.Errorf("page %d from doc %q, want %q", i, page.DocName, wantDocs[i])
		}
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].DocName != "corrupt" || failures[0].PageNum != -1 {
		t.Errorf("unexpected failure record: %+v", failures[0])
	}
	if !strings.Contains(failures[0].Reason, "bad xref") {
		t.Errorf("failure reason should carry the cause, got %q", failures[0].Reason)
	}
}

func TestProcessPDFFolderEmpty(t *testing.T) {
	dir := t.TempDir()
	p := newTestProcessor(t, testConfig(), &fakeOpener{}, &stubEngine{})

	pages, failures, err := p.ProcessPDFFolder(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 0 || len(failures) != 0 {
		t.Fatalf("expected empty results, got %d pages %d failures", len(pages), len(failures))
	}
	stats := GetProcessingStats(pages)
	if stats.TotalPages != 0 || stats.DocumentsProcessed != 0 || stats.AvgChunkSize != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestChunkIDUniquenessAcrossRun(t *testing.T) {
	rendered := testPNG(t, 16, 16)
	longText := makeWords(120)
	opener := &fakeOpener{
		docs: map[string]*fakeDocument{
			"x": {name: "x", pages: []fakePage{{text: longText}, {text: longText}}, rendered: rendered},
			"y": {name: "y", pages: []fakePage{{text: longText}}, rendered: rendered},
		},
	}
	dir := t.TempDir()
	for _, name := range []string{"x.pdf", "y.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := testConfig()
	cfg.EnableOCR = false
	p := newTestProcessor(t, cfg, opener, &stubEngine{})

	pages, _, err := p.ProcessPDFFolder(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, page := range pages {
		for want, chunk := range page.TextChunks {
			if chunk.ChunkIndex != want {
				t.Errorf("chunk_index gap on %s page %d: got %d want %d", page.DocName, page.PageNum, chunk.ChunkIndex, want)
			}
			if seen[chunk.ChunkID] {
				t.Errorf("duplicate chunk_id %q", chunk.ChunkID)
			}
			seen[chunk.ChunkID] = true
		}
	}
	if len(seen) == 0 {
		t.Fatal("expected chunks")
	}
}
