package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/application/service"
	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/internal/models"
	"github.com/garyjia/docextract/internal/pdftext"
	"github.com/garyjia/docextract/internal/repository"
	"github.com/garyjia/docextract/pkg/utils"
)

// MockExtractionService mocks the service.ExtractionService interface
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) ExtractText(ctx context.Context, sourceName, text string) (*service.ExtractionResult, error) {
	args := m.Called(ctx, sourceName, text)
	if v := args.Get(0); v != nil {
		return v.(*service.ExtractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) ExtractPDF(ctx context.Context, sourceName string, data []byte) (*service.ExtractionResult, error) {
	args := m.Called(ctx, sourceName, data)
	if v := args.Get(0); v != nil {
		return v.(*service.ExtractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) ExtractFile(ctx context.Context, path string) (*service.ExtractionResult, error) {
	args := m.Called(ctx, path)
	if v := args.Get(0); v != nil {
		return v.(*service.ExtractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.DocumentRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.DocumentRecord, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]*models.DocumentRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) MarkReviewed(ctx context.Context, id string) (*models.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.DocumentRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExtractionService) Export(ctx context.Context, w io.Writer, filter models.DocumentFilter) error {
	args := m.Called(ctx, w, filter)
	return args.Error(0)
}

type decodedResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupServer(svc service.ExtractionService) *Server {
	cfg := DefaultServerConfig()
	cfg.MaxUploadSize = 1024
	return NewServer(cfg, svc, zap.NewNop())
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, decodedResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var resp decodedResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func sampleRecord(id string) *models.DocumentRecord {
	return &models.DocumentRecord{
		ID: id,
		Document: &extraction.StructuredDocument{
			InvoiceNumber:        "INV-1001",
			ConfidenceScore:      0.5,
			RequiresManualReview: true,
			LineItems:            []extraction.LineItem{},
		},
	}
}

func TestHealthCheck(t *testing.T) {
	s := setupServer(new(MockExtractionService))

	w, resp := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), "healthy")
}

func TestExtractText(t *testing.T) {
	svc := new(MockExtractionService)
	svc.On("ExtractText", mock.Anything, "po.txt", "Invoice # 4411").
		Return(&service.ExtractionResult{Record: sampleRecord("doc-1")}, nil)
	s := setupServer(svc)

	body := `{"source_name":"po.txt","text":"Invoice # 4411"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w, resp := do(t, s, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, string(resp.Data), `"invoice_number":"INV-1001"`)
	svc.AssertExpectations(t)
}

func TestExtractText_BadRequests(t *testing.T) {
	svc := new(MockExtractionService)
	svc.On("ExtractText", mock.Anything, "", "   ").
		Return(nil, fmt.Errorf("%w: text is blank", utils.ErrInvalidText))
	s := setupServer(svc)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "plain"},
		{"missing text", `{"source_name":"x"}`},
		{"blank text", `{"text":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w, resp := do(t, s, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func multipartUpload(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestExtractPDF(t *testing.T) {
	data := []byte("%PDF-1.4 fake")
	svc := new(MockExtractionService)
	svc.On("ExtractPDF", mock.Anything, "po.pdf", data).
		Return(&service.ExtractionResult{Record: sampleRecord("doc-2")}, nil)
	svc.On("ExtractPDF", mock.Anything, "scan.pdf", data).
		Return(nil, fmt.Errorf("failed to read pdf: %w", pdftext.ErrNoText))
	s := setupServer(svc)

	w, resp := do(t, s, multipartUpload(t, "po.pdf", data))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = do(t, s, multipartUpload(t, "scan.pdf", data))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, resp.Success)
}

func TestExtractPDF_TooLarge(t *testing.T) {
	s := setupServer(new(MockExtractionService))

	w, resp := do(t, s, multipartUpload(t, "big.pdf", bytes.Repeat([]byte("x"), 2048)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, resp.Success)
}

func TestListDocuments(t *testing.T) {
	svc := new(MockExtractionService)
	svc.On("ListDocuments", mock.Anything, models.DocumentFilter{PendingReviewOnly: true, Limit: 10, Offset: 5}).
		Return([]*models.DocumentRecord{sampleRecord("doc-1")}, nil)
	svc.On("ListDocuments", mock.Anything, models.DocumentFilter{Limit: models.DefaultListLimit}).
		Return(nil, nil)
	s := setupServer(svc)

	w, resp := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/documents?review=pending&limit=10&offset=5", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "doc-1")

	w, resp = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(resp.Data))

	w, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/documents?review=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestGetDocument(t *testing.T) {
	svc := new(MockExtractionService)
	svc.On("GetDocument", mock.Anything, "doc-1").Return(sampleRecord("doc-1"), nil)
	svc.On("GetDocument", mock.Anything, "missing").Return(nil, repository.ErrNotFound)
	s := setupServer(svc)

	w, resp := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"id":"doc-1"`)

	w, resp = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, repository.ErrNotFound.Error(), resp.Error)
}

func TestMarkReviewed(t *testing.T) {
	svc := new(MockExtractionService)
	svc.On("MarkReviewed", mock.Anything, "doc-1").Return(sampleRecord("doc-1"), nil)
	svc.On("MarkReviewed", mock.Anything, "doc-2").Return(nil, service.ErrStorageDisabled)
	s := setupServer(svc)

	w, resp := do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/reviewed", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, _ = do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-2/reviewed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExportDocuments(t *testing.T) {
	svc := new(MockExtractionService)
	svc.On("Export", mock.Anything, mock.Anything, models.DocumentFilter{Limit: models.DefaultListLimit}).
		Run(func(args mock.Arguments) {
			_, _ = args.Get(1).(io.Writer).Write([]byte("PK-xlsx"))
		}).Return(nil)
	s := setupServer(svc)

	w, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/documents/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "PK-xlsx", w.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", utils.ErrInvalidText), http.StatusBadRequest},
		{repository.ErrNotFound, http.StatusNotFound},
		{pdftext.ErrUnsupportedType, http.StatusUnprocessableEntity},
		{service.ErrStorageDisabled, http.StatusServiceUnavailable},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
