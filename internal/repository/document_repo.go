package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a document record does not exist
var ErrNotFound = errors.New("document not found")

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DocumentRepository handles extracted document persistence
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new record. The ID and creation time are set on the record
// only once the insert succeeds. tx may be nil.
func (r *DocumentRepository) Create(ctx context.Context, tx *sql.Tx, record *models.DocumentRecord) error {
	if record.Document == nil {
		return fmt.Errorf("failed to create document: record has no document")
	}
	doc := record.Document

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	lineItems, err := json.Marshal(doc.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}
	reasons, err := json.Marshal(nonNil(doc.ReviewReasons))
	if err != nil {
		return fmt.Errorf("failed to marshal review reasons: %w", err)
	}
	warnings, err := json.Marshal(nonNil(doc.Warnings))
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO extracted_documents (
			id, source_name, invoice_number, po_number, vendor_name, vendor_email,
			vendor_phone, vendor_address, invoice_date, due_date, subtotal, tax_amount,
			total_amount, line_items, line_item_strategy, confidence_score,
			requires_review, review_reasons, warnings, extraction_method, document, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var target execer = r.db
	if tx != nil {
		target = tx
	}

	_, err = target.ExecContext(ctx, query,
		id,
		record.SourceName,
		doc.InvoiceNumber,
		doc.PONumber,
		doc.Vendor.Name,
		doc.Vendor.Email,
		doc.Vendor.Phone,
		doc.Vendor.Address,
		dateColumn(doc.InvoiceDate),
		dateColumn(doc.DueDate),
		amountColumn(doc.Subtotal),
		amountColumn(doc.TaxAmount),
		amountColumn(doc.TotalAmount),
		string(lineItems),
		doc.LineItemStrategy,
		doc.ConfidenceScore,
		doc.RequiresManualReview,
		string(reasons),
		string(warnings),
		doc.ExtractionMethod,
		string(payload),
		createdAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	record.ID = id
	record.CreatedAt = createdAt

	r.logger.Debug("Document stored",
		zap.String("id", record.ID),
		zap.String("invoice_number", doc.InvoiceNumber))
	return nil
}

// GetByID loads a single record
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	query := `
		SELECT id, source_name, document, reviewed_at, created_at
		FROM extracted_documents
		WHERE id = ?
	`
	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return record, nil
}

// List returns records newest first
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]*models.DocumentRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, source_name, document, reviewed_at, created_at
		FROM extracted_documents
	`
	if filter.PendingReviewOnly {
		query += ` WHERE requires_review = 1 AND reviewed_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	records := []*models.DocumentRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkReviewed records that a reviewer has handled the document
func (r *DocumentRepository) MarkReviewed(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE extracted_documents SET reviewed_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to mark document reviewed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark document reviewed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.DocumentRecord, error) {
	var (
		record     models.DocumentRecord
		payload    string
		reviewedAt sql.NullTime
	)
	if err := row.Scan(&record.ID, &record.SourceName, &payload, &reviewedAt, &record.CreatedAt); err != nil {
		return nil, err
	}

	var doc extraction.StructuredDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", record.ID, err)
	}
	if doc.LineItems == nil {
		doc.LineItems = []extraction.LineItem{}
	}
	record.Document = &doc
	if reviewedAt.Valid {
		t := reviewedAt.Time
		record.ReviewedAt = &t
	}
	return &record, nil
}

func dateColumn(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func amountColumn(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
