package types

import "fmt"

// ContentType tags where a chunk's text came from.
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeOCR  ContentType = "ocr"
)

// Colorspace is the channel model of a decoded embedded image.
type Colorspace string

const (
	ColorspaceGray Colorspace = "gray"
	ColorspaceRGB  Colorspace = "rgb"
	ColorspaceCMYK Colorspace = "cmyk"
)

// TextChunk is a word-bounded slice of a page's text used as a retrieval unit.
type TextChunk struct {
	ChunkID     string      `json:"chunk_id"`
	Text        string      `json:"text"`
	DocName     string      `json:"doc_name"`
	PageNum     int         `json:"page_num"`
	ChunkIndex  int         `json:"chunk_index"`
	WordCount   int         `json:"word_count"`
	TokenCount  int         `json:"token_count"`
	ContentType ContentType `json:"content_type"`
}

// EmbeddedImage is one raster resource extracted from a page. ImageData is
// the PNG re-encoding of the resource, base64 encoded for JSON transport.
type EmbeddedImage struct {
	ImageIndex int        `json:"image_index"`
	ImageData  string     `json:"image_data"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Colorspace Colorspace `json:"colorspace"`
	Format     string     `json:"format"`
}

// Page is the per-page record produced by the processor. PageImage holds the
// full-page rendering as base64 PNG when rendering was enabled and succeeded.
// OCRText carries the raw OCR output before chunking, empty when OCR was not
// used for the page.
type Page struct {
	DocName    string          `json:"doc_name"`
	PageNum    int             `json:"page_num"`
	TextChunks []TextChunk     `json:"text_chunks"`
	Images     []EmbeddedImage `json:"images"`
	PageImage  string          `json:"page_image,omitempty"`
	OCRText    string          `json:"ocr_text"`
	HasText    bool            `json:"has_text"`
	HasImages  bool            `json:"has_images"`
}

// ProcessingStats summarizes a batch of processed pages. It is recomputed
// from the pages on demand and has no lifecycle of its own.
type ProcessingStats struct {
	TotalPages         int     `json:"total_pages"`
	TotalChunks        int     `json:"total_chunks"`
	TotalWords         int     `json:"total_words"`
	TotalTokens        int     `json:"total_tokens"`
	PagesWithText      int     `json:"pages_with_text"`
	PagesWithImages    int     `json:"pages_with_images"`
	TotalImages        int     `json:"total_images"`
	DocumentsProcessed int     `json:"documents_processed"`
	AvgChunkSize       float64 `json:"avg_chunk_size"`
}

// ProcessingFailure records one document or page the processor could not
// handle. PageNum is -1 when the whole document failed to open.
type ProcessingFailure struct {
	DocName string `json:"doc_name"`
	Path    string `json:"path"`
	PageNum int    `json:"page_num"`
	Reason  string `json:"reason"`
}

// ProcessingConfig holds every knob of the extraction pipeline. It is built
// once, validated once, and passed by value; the pipeline never reads
// configuration from anywhere else.
type ProcessingConfig struct {
	ChunkSize             int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap          int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	OCRLang               string `mapstructure:"ocr_lang" json:"ocr_lang"`
	DPI                   int    `mapstructure:"dpi" json:"dpi"`
	EnableOCR             bool   `mapstructure:"enable_ocr" json:"enable_ocr"`
	EnableImageExtraction bool   `mapstructure:"enable_image_extraction" json:"enable_image_extraction"`
	MaxWorkers            int    `mapstructure:"max_workers" json:"max_workers"`
	OCRWorkers            int    `mapstructure:"ocr_workers" json:"ocr_workers"`
}

var DefaultProcessingConfig = ProcessingConfig{
	ChunkSize:             1000,
	ChunkOverlap:          200,
	OCRLang:               "eng",
	DPI:                   300,
	EnableOCR:             true,
	EnableImageExtraction: true,
	MaxWorkers:            4,
	OCRWorkers:            2,
}

// Validate checks the config once at construction time so the pipeline never
// has to re-validate per call.
func (c ProcessingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return &ConfigurationError{Field: "chunk_size", Reason: fmt.Sprintf("must be > 0, got %d", c.ChunkSize)}
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return &ConfigurationError{Field: "chunk_overlap", Reason: fmt.Sprintf("must satisfy 0 <= overlap < chunk_size, got %d", c.ChunkOverlap)}
	}
	if c.DPI <= 0 {
		return &ConfigurationError{Field: "dpi", Reason: fmt.Sprintf("must be > 0, got %d", c.DPI)}
	}
	return nil
}
