// Package render converts a generated HTML contract into a fixed-layout PDF
// artifact. Placeholders were resolved upstream; rendering performs no data
// substitution.
package render

import (
	"bytes"
	"context"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	dErrors "rentalsign/pkg/domain-errors"
)

// Renderer rasterizes markup into a binary artifact.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// PDFRenderer drives wkhtmltopdf and validates the produced artifact with
// pdfcpu so a corrupt document never reaches the signature provider.
type PDFRenderer struct {
	validateConf *model.Configuration
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{validateConf: model.NewDefaultConfiguration()}
}

// Render produces PDF bytes for the given HTML. Any engine or validation
// failure maps to render_failed; callers stop the pipeline on error.
func (r *PDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, dErrors.New(dErrors.CodeRenderFailed, "empty document")
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "pdf engine unavailable", err)
	}
	pdfg.AddPage(wkhtmltopdf.NewPageReader(strings.NewReader(html)))

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "pdf rendering failed", err)
	}
	out := pdfg.Bytes()

	if err := api.Validate(bytes.NewReader(out), r.validateConf); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "rendered artifact failed validation", err)
	}
	return out, nil
}
