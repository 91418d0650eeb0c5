package port

import (
	"context"
	"io"

	"github.com/garyjia/docextract/internal/models"
)

// TextReader turns document files into plain text
type TextReader interface {
	ReadText(ctx context.Context, path string) (string, error)
	ReadPDF(ctx context.Context, data []byte, name string) (string, error)
}

// Exporter renders stored documents for download
type Exporter interface {
	Write(w io.Writer, records []*models.DocumentRecord) error
}
