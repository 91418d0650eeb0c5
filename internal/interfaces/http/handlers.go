package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/application/service"
	"github.com/garyjia/docextract/internal/models"
	"github.com/garyjia/docextract/internal/pdftext"
	"github.com/garyjia/docextract/internal/repository"
	"github.com/garyjia/docextract/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	service       service.ExtractionService
	maxUploadSize int64
	logger        *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc service.ExtractionService, maxUploadSize int64, logger *zap.Logger) *Handlers {
	return &Handlers{
		service:       svc,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ExtractRequest is the body of POST /api/v1/extract
type ExtractRequest struct {
	SourceName string `json:"source_name"`
	Text       string `json:"text" binding:"required"`
}

// ListDocumentsRequest represents query parameters for listing documents
type ListDocumentsRequest struct {
	Review string `form:"review"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ExtractText handles POST /api/v1/extract
func (h *Handlers) ExtractText(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid extract request", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "request body must be JSON with a text field")
		return
	}

	result, err := h.service.ExtractText(c.Request.Context(), req.SourceName, req.Text)
	if err != nil {
		h.respondError(c, "Failed to extract text", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ExtractPDF handles POST /api/v1/extract/pdf with a multipart "file" field
func (h *Handlers) ExtractPDF(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "missing file upload")
		return
	}
	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		h.fail(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", h.maxUploadSize))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "could not read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read upload", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "could not read upload")
		return
	}

	result, err := h.service.ExtractPDF(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.respondError(c, "Failed to extract pdf", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListDocuments handles GET /api/v1/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	records, err := h.service.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to list documents", err)
		return
	}
	if records == nil {
		records = []*models.DocumentRecord{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetDocument handles GET /api/v1/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	record, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get document", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// MarkReviewed handles POST /api/v1/documents/:id/reviewed
func (h *Handlers) MarkReviewed(c *gin.Context) {
	record, err := h.service.MarkReviewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to mark document reviewed", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// ExportDocuments handles GET /api/v1/documents/export
func (h *Handlers) ExportDocuments(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	// buffered so a failed export still gets a JSON error
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf, filter); err != nil {
		h.respondError(c, "Failed to export documents", err)
		return
	}

	filename := fmt.Sprintf("documents_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handlers) bindFilter(c *gin.Context) (models.DocumentFilter, bool) {
	var req ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", zap.Error(err))
		h.fail(c, http.StatusBadRequest, "invalid query parameters")
		return models.DocumentFilter{}, false
	}

	switch req.Review {
	case "", "all", "pending":
	default:
		h.fail(c, http.StatusBadRequest, "review must be pending or all")
		return models.DocumentFilter{}, false
	}

	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = models.DefaultListLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	return models.DocumentFilter{
		PendingReviewOnly: req.Review == "pending",
		Limit:             req.Limit,
		Offset:            req.Offset,
	}, true
}

// respondError maps service errors onto status codes
func (h *Handlers) respondError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Warn(msg, zap.Int("status", status), zap.Error(err))
	}
	h.fail(c, status, err.Error())
}

func (h *Handlers) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, utils.ErrInvalidText):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pdftext.ErrNoText), errors.Is(err, pdftext.ErrUnsupportedType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
