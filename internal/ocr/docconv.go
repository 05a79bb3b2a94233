package ocr

import (
	"context"

	"code.sajari.com/docconv"
	"github.com/rotisserie/eris"
)

// Docconv extracts text using the docconv library, which also handles
// DOCX/RTF/ODT input should a candidate upload one with a .pdf name.
type Docconv struct{}

// NewDocconv creates a Docconv extractor.
func NewDocconv() *Docconv {
	return &Docconv{}
}

// Name implements Extractor.
func (d *Docconv) Name() string { return "docconv" }

// ExtractText converts the document at pdfPath to plain text.
func (d *Docconv) ExtractText(_ context.Context, pdfPath string) (string, error) {
	res, err := docconv.ConvertPath(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: docconv convert %s", pdfPath)
	}
	return res.Body, nil
}
