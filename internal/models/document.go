package models

import (
	"time"

	"github.com/garyjia/docextract/internal/extraction"
)

// DocumentRecord is a stored extraction result
type DocumentRecord struct {
	ID         string                         `json:"id"`
	SourceName string                         `json:"source_name,omitempty"`
	Document   *extraction.StructuredDocument `json:"document"`
	ReviewedAt *time.Time                     `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time                      `json:"created_at"`
}

// PendingReview reports whether the record still waits for a reviewer
func (r *DocumentRecord) PendingReview() bool {
	return r.Document != nil && r.Document.RequiresManualReview && r.ReviewedAt == nil
}

// DocumentFilter narrows a document listing
type DocumentFilter struct {
	PendingReviewOnly bool
	Limit             int
	Offset            int
}

// DefaultListLimit caps listings that do not set a limit
const DefaultListLimit = 50
