package ocr

import (
	"context"
	"strings"
)

// Input is a single encoded bitmap submitted for recognition.
type Input struct {
	// Image is the PNG-encoded bitmap.
	Image []byte
	// Languages lists trained-data hints (e.g. "eng", "fra").
	Languages []string
	// DPI carries the resolution the bitmap was rendered at; zero means
	// unknown. Tesseract uses it for layout heuristics.
	DPI int
}

// Engine is the OCR capability contract: one bitmap in, recognized text out.
// A production binding talks to Tesseract; tests plug in a stub so the
// fallback logic is exercisable without an engine installed.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (string, error)
}

// SplitLangSpec expands a "+"-joined language spec ("eng+fra") into the
// list form engines take. Empty segments are dropped.
func SplitLangSpec(spec string) []string {
	var langs []string
	for _, lang := range strings.Split(spec, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}
