package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/matchbaan/match-cli/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	Name() string
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "pdftotext", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "docconv":
		return NewDocconv(), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// Sanitize strips NUL bytes and other control characters that PDF extractors
// leak into the text. Postgres rejects NUL in text columns.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
