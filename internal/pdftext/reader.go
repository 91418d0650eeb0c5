// Package pdftext turns uploaded documents into the plain text the extraction
// engine consumes.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

var (
	// ErrNoText is returned when a document has no extractable text layer,
	// typically a scanned PDF that needs OCR first.
	ErrNoText = errors.New("document has no text layer")

	// ErrUnsupportedType is returned for file types other than PDF and plain text
	ErrUnsupportedType = errors.New("unsupported document type")
)

// DefaultMaxPages bounds how many PDF pages are read
const DefaultMaxPages = 50

// Reader extracts text from PDF and plain-text documents using mupdf
type Reader struct {
	maxPages int
	logger   *zap.Logger
}

// NewReader creates a reader. A non-positive maxPages uses DefaultMaxPages.
func NewReader(maxPages int, logger *zap.Logger) *Reader {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Reader{maxPages: maxPages, logger: logger}
}

// ReadText reads the text of a file on disk, dispatching on its extension
func (r *Reader) ReadText(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("failed to stat document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return checkText(string(data))
	case ".pdf":
		doc, err := fitz.New(path)
		if err != nil {
			return "", fmt.Errorf("failed to open PDF: %w", err)
		}
		defer doc.Close()
		return r.pagesText(ctx, doc, path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// ReadPDF reads the text of an in-memory PDF, such as an HTTP upload
func (r *Reader) ReadPDF(ctx context.Context, data []byte, name string) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", fmt.Errorf("%w: %s is not a PDF", ErrUnsupportedType, name)
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return r.pagesText(ctx, doc, name)
}

func (r *Reader) pagesText(ctx context.Context, doc *fitz.Document, name string) (string, error) {
	pageCount := doc.NumPage()
	if pageCount > r.maxPages {
		r.logger.Warn("Truncating long PDF",
			zap.String("document", name),
			zap.Int("pages", pageCount),
			zap.Int("max_pages", r.maxPages))
		pageCount = r.maxPages
	}

	var sb strings.Builder
	for page := 0; page < pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(page)
		if err != nil {
			r.logger.Warn("Failed to extract page text",
				zap.String("document", name),
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		sb.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			sb.WriteByte('\n')
		}
	}

	r.logger.Debug("PDF text extracted",
		zap.String("document", name),
		zap.Int("pages", pageCount),
		zap.Int("bytes", sb.Len()))
	return checkText(sb.String())
}

func checkText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
