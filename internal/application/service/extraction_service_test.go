package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/garyjia/docextract/internal/aitier"
	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/internal/models"
	"github.com/garyjia/docextract/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAIExtractor mocks the aitier.Extractor interface
type MockAIExtractor struct {
	mock.Mock
}

func (m *MockAIExtractor) Extract(ctx context.Context, text string) (*aitier.Extraction, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.(*aitier.Extraction), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDocumentRepository mocks the port.DocumentRepository interface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, tx *sql.Tx, record *models.DocumentRecord) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.DocumentRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]*models.DocumentRecord, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.DocumentRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) MarkReviewed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTextReader mocks the port.TextReader interface
type MockTextReader struct {
	mock.Mock
}

func (m *MockTextReader) ReadText(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *MockTextReader) ReadPDF(ctx context.Context, data []byte, name string) (string, error) {
	args := m.Called(ctx, data, name)
	return args.String(0), args.Error(1)
}

type stubExporter struct {
	records []*models.DocumentRecord
}

func (s *stubExporter) Write(w io.Writer, records []*models.DocumentRecord) error {
	s.records = records
	_, err := w.Write([]byte("xlsx"))
	return err
}

const invoiceText = "Acme Supply LLC\nInvoice Number: INV-1001\nDate: 01/15/2024\nGrand Total: $200.00\n"

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newEngine() *extraction.Engine {
	return extraction.NewEngine(extraction.DefaultOptions(), zap.NewNop())
}

func TestExtractText_RegexOnly(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, (*sql.Tx)(nil), mock.AnythingOfType("*models.DocumentRecord")).
		Run(func(args mock.Arguments) {
			args.Get(2).(*models.DocumentRecord).ID = "doc-1"
		}).Return(nil)

	svc := NewExtractionService(newEngine(), nil, repo, nil, nil, Options{}, zap.NewNop())

	result, err := svc.ExtractText(context.Background(), "invoice.txt", invoiceText)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", result.Record.ID)
	assert.Equal(t, "invoice.txt", result.Record.SourceName)
	assert.Equal(t, "INV-1001", result.Record.Document.InvoiceNumber)
	assert.Equal(t, extraction.MethodRegex, result.Record.Document.ExtractionMethod)
	assert.Nil(t, result.CrossValidation)
	repo.AssertExpectations(t)
}

func TestExtractText_RejectsInvalidText(t *testing.T) {
	svc := NewExtractionService(newEngine(), nil, nil, nil, nil, Options{MaxTextBytes: 10}, zap.NewNop())

	_, err := svc.ExtractText(context.Background(), "big.txt", invoiceText)
	assert.ErrorIs(t, err, utils.ErrInvalidText)

	_, err = svc.ExtractText(context.Background(), "blank.txt", "   ")
	assert.ErrorIs(t, err, utils.ErrInvalidText)
}

func TestExtractText_AIWithCrossValidation(t *testing.T) {
	confidence := 0.9
	ai := new(MockAIExtractor)
	ai.On("Extract", mock.Anything, invoiceText).Return(&aitier.Extraction{
		InvoiceNumber: "INV-1001",
		VendorName:    "Acme Supply LLC",
		InvoiceDate:   "2024-01-15",
		TotalAmount:   amount("200.00"),
		Confidence:    &confidence,
	}, nil)

	svc := NewExtractionService(newEngine(), ai, nil, nil, nil, Options{CrossValidate: true}, zap.NewNop())

	result, err := svc.ExtractText(context.Background(), "invoice.txt", invoiceText)
	require.NoError(t, err)

	doc := result.Record.Document
	assert.Equal(t, MethodAIValidated, doc.ExtractionMethod)
	require.NotNil(t, result.CrossValidation)
	assert.Equal(t, 0, result.CrossValidation.Mismatched)
	assert.Equal(t, result.CrossValidation.FinalConfidence, doc.ConfidenceScore)
	assert.False(t, doc.RequiresManualReview)
	ai.AssertExpectations(t)
}

func TestExtractText_AICriticalMismatchForcesReview(t *testing.T) {
	confidence := 0.95
	ai := new(MockAIExtractor)
	ai.On("Extract", mock.Anything, mock.Anything).Return(&aitier.Extraction{
		InvoiceNumber: "INV-1001",
		VendorName:    "Acme Supply LLC",
		TotalAmount:   amount("950.00"),
		Confidence:    &confidence,
	}, nil)

	svc := NewExtractionService(newEngine(), ai, nil, nil, nil, Options{CrossValidate: true}, zap.NewNop())

	result, err := svc.ExtractText(context.Background(), "invoice.txt", invoiceText)
	require.NoError(t, err)

	doc := result.Record.Document
	assert.True(t, doc.RequiresManualReview)
	assert.Contains(t, doc.ReviewReasons, "total_amount disagrees with regex extraction")
}

func TestExtractText_AIFailureFallsBackToRegex(t *testing.T) {
	ai := new(MockAIExtractor)
	ai.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	svc := NewExtractionService(newEngine(), ai, nil, nil, nil, Options{CrossValidate: true}, zap.NewNop())

	result, err := svc.ExtractText(context.Background(), "invoice.txt", invoiceText)
	require.NoError(t, err)

	assert.Equal(t, extraction.MethodRegex, result.Record.Document.ExtractionMethod)
	assert.Nil(t, result.CrossValidation)
}

func TestExtractPDF(t *testing.T) {
	reader := new(MockTextReader)
	data := []byte("%PDF-1.4")
	reader.On("ReadPDF", mock.Anything, data, "po.pdf").Return(invoiceText, nil)

	svc := NewExtractionService(newEngine(), nil, nil, reader, nil, Options{}, zap.NewNop())

	result, err := svc.ExtractPDF(context.Background(), "po.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, "INV-1001", result.Record.Document.InvoiceNumber)
	reader.AssertExpectations(t)
}

func TestExtractFile_ReaderError(t *testing.T) {
	reader := new(MockTextReader)
	reader.On("ReadText", mock.Anything, "scan.pdf").Return("", errors.New("no text"))

	svc := NewExtractionService(newEngine(), nil, nil, reader, nil, Options{}, zap.NewNop())

	_, err := svc.ExtractFile(context.Background(), "scan.pdf")
	assert.Error(t, err)
}

func TestMarkReviewed(t *testing.T) {
	repo := new(MockDocumentRepository)
	record := &models.DocumentRecord{ID: "doc-1"}
	repo.On("MarkReviewed", mock.Anything, "doc-1").Return(nil)
	repo.On("GetByID", mock.Anything, "doc-1").Return(record, nil)

	svc := NewExtractionService(newEngine(), nil, repo, nil, nil, Options{}, zap.NewNop())

	got, err := svc.MarkReviewed(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, record, got)
	repo.AssertExpectations(t)
}

func TestQueueOperationsWithoutStorage(t *testing.T) {
	svc := NewExtractionService(newEngine(), nil, nil, nil, nil, Options{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.GetDocument(ctx, "x")
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = svc.ListDocuments(ctx, models.DocumentFilter{})
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = svc.MarkReviewed(ctx, "x")
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestExport(t *testing.T) {
	repo := new(MockDocumentRepository)
	records := []*models.DocumentRecord{{ID: "doc-1"}}
	filter := models.DocumentFilter{PendingReviewOnly: true}
	repo.On("List", mock.Anything, filter).Return(records, nil)
	exporter := &stubExporter{}

	svc := NewExtractionService(newEngine(), nil, repo, nil, exporter, Options{}, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf, filter))
	assert.Equal(t, records, exporter.records)
	assert.Equal(t, "xlsx", buf.String())
}
