package types

import (
	"errors"
	"fmt"
)

// ErrOCRUnavailable signals that no OCR engine (or the requested language
// pack) is installed. It is non-fatal: the affected page ends with no text.
var ErrOCRUnavailable = errors.New("ocr engine unavailable")

// ConfigurationError reports an invalid processing configuration. It is the
// only fatal-at-construction error in the taxonomy.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// DocumentOpenError reports a PDF that could not be opened. Fatal for the
// document, recorded and skipped at the folder level.
type DocumentOpenError struct {
	Path string
	Err  error
}

func (e *DocumentOpenError) Error() string {
	return fmt.Sprintf("open document %s: %v", e.Path, e.Err)
}

func (e *DocumentOpenError) Unwrap() error { return e.Err }

// PageRenderError reports a page that could not be rasterized. Non-fatal:
// the page continues without a full-page image.
type PageRenderError struct {
	PageNum int
	Err     error
}

func (e *PageRenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.PageNum, e.Err)
}

func (e *PageRenderError) Unwrap() error { return e.Err }

// OCRError reports a failed recognition call. Non-fatal: the page ends with
// empty text. Wraps ErrOCRUnavailable when the engine itself is missing.
type OCRError struct {
	PageNum int
	Err     error
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("ocr page %d: %v", e.PageNum, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// ImageDecodeError reports one embedded image that could not be decoded.
// Non-fatal: the image is skipped, extraction of the page continues.
type ImageDecodeError struct {
	ImageIndex int
	Err        error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode embedded image %d: %v", e.ImageIndex, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
