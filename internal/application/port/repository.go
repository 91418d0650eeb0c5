package port

import (
	"context"
	"database/sql"

	"github.com/garyjia/docextract/internal/models"
)

// DocumentRepository defines persistence operations for extracted documents
type DocumentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, record *models.DocumentRecord) error
	GetByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]*models.DocumentRecord, error)
	MarkReviewed(ctx context.Context, id string) error
}
