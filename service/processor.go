package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tieubaoca/docrag-be/ocr"
	"github.com/tieubaoca/docrag-be/pdf"
	"github.com/tieubaoca/docrag-be/types"
	"github.com/tieubaoca/docrag-be/utils"
)

// DocumentProcessor runs the multimodal extraction pipeline: per page it
// renders a bitmap, pulls the native text layer, falls back to OCR when the
// layer is empty, extracts embedded images, and chunks whatever text it got.
// Sub-step failures degrade the affected page fields and never abort the
// document; document open failures never abort a folder batch.
type DocumentProcessor struct {
	config   types.ProcessingConfig
	opener   pdf.Opener
	ocrSem   *semaphore.Weighted
	chunker  *Chunker
	ocrLangs []string

	// OCREngine is swappable so the fallback logic is testable without a
	// Tesseract installation.
	OCREngine ocr.Engine
}

// NewDocumentProcessor validates the configuration once; an invalid
// chunk_size, chunk_overlap or dpi fails here, never at first use.
func NewDocumentProcessor(config types.ProcessingConfig, opener pdf.Opener, engine ocr.Engine) (*DocumentProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 1
	}
	if config.OCRWorkers <= 0 {
		config.OCRWorkers = 1
	}
	chunker, err := NewChunker(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &DocumentProcessor{
		config:    config,
		opener:    opener,
		ocrSem:    semaphore.NewWeighted(int64(config.OCRWorkers)),
		chunker:   chunker,
		ocrLangs:  ocr.SplitLangSpec(config.OCRLang),
		OCREngine: engine,
	}, nil
}

func (p *DocumentProcessor) Config() types.ProcessingConfig { return p.config }

// ProcessSinglePage assembles the record for one zero-indexed page. Always
// succeeds; failed sub-steps leave their fields empty.
func (p *DocumentProcessor) ProcessSinglePage(ctx context.Context, doc pdf.Document, pageNum int, docName string) types.Page {
	page := types.Page{
		DocName: docName,
		PageNum: pageNum,
	}

	// The bitmap feeds both the full-page raster and OCR, so render it once
	// up front when either consumer is on.
	var rendered []byte
	if p.config.EnableOCR || p.config.EnableImageExtraction {
		var err error
		rendered, err = doc.Render(ctx, pageNum, p.config.DPI)
		if err != nil {
			log.Printf("Warning: %v", &types.PageRenderError{PageNum: pageNum, Err: err})
			rendered = nil
		} else {
			page.PageImage = base64.StdEncoding.EncodeToString(rendered)
		}
	}

	if p.config.EnableImageExtraction {
		page.Images = p.extractImages(ctx, doc, pageNum)
	}

	directText, err := doc.Text(ctx, pageNum)
	if err != nil {
		log.Printf("Warning: failed to extract text from page %d of %s: %v", pageNum, docName, err)
		directText = ""
	}

	if strings.TrimSpace(directText) != "" {
		page.TextChunks = p.chunker.Split(directText, docName, pageNum, types.ContentTypeText)
	} else if p.config.EnableOCR && rendered != nil {
		ocrText, err := p.recognize(ctx, rendered, pageNum)
		if err != nil {
			log.Printf("Warning: %v", err)
		} else if strings.TrimSpace(ocrText) != "" {
			page.OCRText = ocrText
			page.TextChunks = p.chunker.Split(ocrText, docName, pageNum, types.ContentTypeOCR)
			log.Printf("OCR extracted %d words from page %d of %s", len(strings.Fields(ocrText)), pageNum, docName)
		}
	}

	page.HasText = len(page.TextChunks) > 0
	page.HasImages = len(page.Images) > 0
	return page
}

// recognize pushes a rendered bitmap through preprocessing and the OCR
// engine, gated by the OCR semaphore so concurrent page workers cannot
// saturate the engine.
func (p *DocumentProcessor) recognize(ctx context.Context, rendered []byte, pageNum int) (string, error) {
	if err := p.ocrSem.Acquire(ctx, 1); err != nil {
		return "", &types.OCRError{PageNum: pageNum, Err: err}
	}
	defer p.ocrSem.Release(1)

	prepared, err := ocr.Preprocess(rendered)
	if err != nil {
		return "", &types.OCRError{PageNum: pageNum, Err: err}
	}
	text, err := p.OCREngine.Recognize(ctx, ocr.Input{
		Image:     prepared,
		Languages: p.ocrLangs,
		DPI:       p.config.DPI,
	})
	if err != nil {
		return "", &types.OCRError{PageNum: pageNum, Err: err}
	}
	return text, nil
}

// extractImages decodes the page's embedded raster resources. Width, height
// and pixel model come from the re-encoded bytes; the backend's colorspace
// token is mapped onto the closed {gray, rgb, cmyk} enumeration and anything
// else is skipped. Skipped images leave a gap in image_index so the index
// keeps matching extraction order.
func (p *DocumentProcessor) extractImages(ctx context.Context, doc pdf.Document, pageNum int) []types.EmbeddedImage {
	raws, err := doc.Images(ctx, pageNum)
	if err != nil {
		log.Printf("Warning: failed to list images on page %d: %v", pageNum, err)
		return nil
	}
	var images []types.EmbeddedImage
	for i, raw := range raws {
		decoded, err := decodeEmbeddedImage(i, raw)
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}
		images = append(images, decoded)
	}
	return images
}

func decodeEmbeddedImage(index int, raw pdf.RawImage) (types.EmbeddedImage, error) {
	colorspace, ok := mapColorspace(raw.Colorspace)
	if !ok {
		return types.EmbeddedImage{}, &types.ImageDecodeError{ImageIndex: index, Err: fmt.Errorf("unsupported colorspace %q", raw.Colorspace)}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw.Data))
	if err != nil {
		return types.EmbeddedImage{}, &types.ImageDecodeError{ImageIndex: index, Err: err}
	}
	return types.EmbeddedImage{
		ImageIndex: index,
		ImageData:  base64.StdEncoding.EncodeToString(raw.Data),
		Width:      cfg.Width,
		Height:     cfg.Height,
		Colorspace: colorspace,
		Format:     format,
	}, nil
}

func mapColorspace(token string) (types.Colorspace, bool) {
	switch strings.ToLower(token) {
	case "gray":
		return types.ColorspaceGray, true
	case "rgb":
		return types.ColorspaceRGB, true
	case "cmyk":
		return types.ColorspaceCMYK, true
	default:
		return "", false
	}
}

// ProcessPDFFile runs the pipeline over every page of one document, in
// source order. The open failure is the only fatal error; it is returned as
// a *types.DocumentOpenError. The handle is closed on every exit path, and
// cancellation discards the partially processed document.
func (p *DocumentProcessor) ProcessPDFFile(ctx context.Context, path string) ([]types.Page, error) {
	return p.processFile(ctx, path, nil)
}

// ProcessPDFFileWithProgress is ProcessPDFFile with a per-page progress
// callback, used by the upload path to stream status to clients.
func (p *DocumentProcessor) ProcessPDFFileWithProgress(ctx context.Context, path string, progress func(processed, total int)) ([]types.Page, error) {
	return p.processFile(ctx, path, progress)
}

func (p *DocumentProcessor) processFile(ctx context.Context, path string, progress func(processed, total int)) ([]types.Page, error) {
	doc, err := p.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	docName := doc.Name()
	total := doc.PageCount()
	log.Printf("Processing PDF %s (%d pages)", path, total)

	pages := make([]types.Page, 0, total)
	for pageNum := 0; pageNum < total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := p.ProcessSinglePage(ctx, doc, pageNum, docName)
		pages = append(pages, page)
		log.Printf("Page %d/%d of %s: chunks=%d images=%d", pageNum+1, total, docName, len(page.TextChunks), len(page.Images))
		if progress != nil {
			progress(pageNum+1, total)
		}
	}
	return pages, nil
}

// ProcessPDFFolder processes every *.pdf directly inside path, in
// lexicographic filename order, fanning documents out over a bounded worker
// pool. Each worker opens its own handle. A document that fails to open is
// recorded and skipped; the batch continues. Output page order matches the
// sorted file order regardless of worker scheduling.
func (p *DocumentProcessor) ProcessPDFFolder(ctx context.Context, path string) ([]types.Page, []types.ProcessingFailure, error) {
	files, err := utils.FindPDFFiles(path)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Found %d PDF files in %s", len(files), path)

	results := make([][]types.Page, len(files))
	docFailures := make([]*types.ProcessingFailure, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxWorkers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages, err := p.ProcessPDFFile(gctx, file)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("Error processing %s: %v", file, err)
				docFailures[i] = &types.ProcessingFailure{
					DocName: utils.FileNameWithoutExt(file),
					Path:    file,
					PageNum: -1,
					Reason:  err.Error(),
				}
				return nil
			}
			results[i] = pages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var allPages []types.Page
	var failures []types.ProcessingFailure
	for i := range files {
		allPages = append(allPages, results[i]...)
		if docFailures[i] != nil {
			failures = append(failures, *docFailures[i])
		}
	}
	log.Printf("Total pages processed: %d (%d documents failed)", len(allPages), len(failures))
	return allPages, failures, nil
}
