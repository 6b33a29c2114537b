package service

import (
	"strings"

	"github.com/noah-isme/pedagosys-api/pkg/export"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders datasets into downloadable documents.
type ExportService struct {
	renderers map[string]export.Renderer
}

// NewExportService registers the CSV and PDF renderers.
func NewExportService() *ExportService {
	return &ExportService{renderers: map[string]export.Renderer{
		FormatCSV: export.NewCSVExporter(),
		FormatPDF: export.NewPDFExporter(),
	}}
}

// Render produces the file for format named base.
func (s *ExportService) Render(format, base string, data export.Dataset) (*ExportFile, error) {
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.ErrUnsupportedFormat
	}
	content, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    sanitizeFilename(base) + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "export"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
