package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/garyjia/docextract/internal/aitier"
	"github.com/garyjia/docextract/internal/application/port"
	"github.com/garyjia/docextract/internal/crossvalidate"
	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/internal/models"
	"github.com/garyjia/docextract/pkg/utils"
	"go.uber.org/zap"
)

// MethodAIValidated tags AI results that were cross-checked against the regex engine
const MethodAIValidated = "ai_text+validation"

// ExtractionResult is the outcome of one extraction request
type ExtractionResult struct {
	Record          *models.DocumentRecord `json:"record"`
	CrossValidation *crossvalidate.Result  `json:"cross_validation,omitempty"`
}

// ExtractionService manages extraction requests and the review queue
type ExtractionService interface {
	ExtractText(ctx context.Context, sourceName, text string) (*ExtractionResult, error)
	ExtractPDF(ctx context.Context, sourceName string, data []byte) (*ExtractionResult, error)
	ExtractFile(ctx context.Context, path string) (*ExtractionResult, error)
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
	ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.DocumentRecord, error)
	MarkReviewed(ctx context.Context, id string) (*models.DocumentRecord, error)
	Export(ctx context.Context, w io.Writer, filter models.DocumentFilter) error
}

// ErrStorageDisabled is returned by queue operations when no repository is configured
var ErrStorageDisabled = errors.New("document storage disabled")

// Options configures the extraction service
type Options struct {
	MaxTextBytes  int
	CrossValidate bool
}

type extractionServiceImpl struct {
	engine    *extraction.Engine
	ai        aitier.Extractor
	validator *crossvalidate.Validator
	repo      port.DocumentRepository
	reader    port.TextReader
	exporter  port.Exporter
	opts      Options
	logger    *zap.Logger
}

// NewExtractionService creates the service. ai, repo, reader and exporter may be
// nil; the corresponding features are then unavailable.
func NewExtractionService(
	engine *extraction.Engine,
	ai aitier.Extractor,
	repo port.DocumentRepository,
	reader port.TextReader,
	exporter port.Exporter,
	opts Options,
	logger *zap.Logger,
) ExtractionService {
	return &extractionServiceImpl{
		engine:    engine,
		ai:        ai,
		validator: crossvalidate.NewValidator(logger),
		repo:      repo,
		reader:    reader,
		exporter:  exporter,
		opts:      opts,
		logger:    logger,
	}
}

// ExtractText extracts fields from raw text and stores the result
func (s *extractionServiceImpl) ExtractText(ctx context.Context, sourceName, text string) (*ExtractionResult, error) {
	if err := utils.ValidateDocumentText(text, s.opts.MaxTextBytes); err != nil {
		return nil, err
	}
	text = utils.SanitizeText(text)

	doc := s.engine.Extract(text)
	result := &ExtractionResult{}

	if s.ai != nil {
		if aiDoc, cv := s.aiTier(ctx, text, doc); aiDoc != nil {
			doc = aiDoc
			result.CrossValidation = cv
		}
	}

	record := &models.DocumentRecord{SourceName: sourceName, Document: doc}
	if s.repo != nil {
		if err := s.repo.Create(ctx, nil, record); err != nil {
			return nil, fmt.Errorf("failed to store extraction: %w", err)
		}
	}
	result.Record = record

	s.logger.Info("Document processed",
		zap.String("source", sourceName),
		zap.String("id", record.ID),
		zap.String("method", doc.ExtractionMethod),
		zap.Float64("confidence", doc.ConfidenceScore),
		zap.Bool("requires_review", doc.RequiresManualReview))

	return result, nil
}

// aiTier runs the AI extractor and, when it returns a usable result, builds the
// document from it. Any failure falls back to the regex document.
func (s *extractionServiceImpl) aiTier(ctx context.Context, text string, regexDoc *extraction.StructuredDocument) (*extraction.StructuredDocument, *crossvalidate.Result) {
	ai, err := s.ai.Extract(ctx, text)
	if err != nil {
		s.logger.Warn("AI extraction failed, using regex result", zap.Error(err))
		return nil, nil
	}
	if !ai.Usable() {
		s.logger.Warn("AI extraction not usable, using regex result")
		return nil, nil
	}

	doc := ai.ToDocument(regexDoc.RawText)
	doc.ApprovedDate = regexDoc.ApprovedDate
	doc.Project = regexDoc.Project
	doc.SaleNumber = regexDoc.SaleNumber
	doc.CreatedBy = regexDoc.CreatedBy
	doc.MarketSegment = regexDoc.MarketSegment
	doc.ProductCategory = regexDoc.ProductCategory

	var cv *crossvalidate.Result
	if s.opts.CrossValidate {
		res := s.validator.Validate(ai, regexDoc)
		cv = &res
		doc.ConfidenceScore = res.FinalConfidence
		doc.ExtractionMethod = MethodAIValidated
	} else if ai.Confidence != nil {
		doc.ConfidenceScore = *ai.Confidence
	} else {
		doc.ConfidenceScore = extraction.DefaultReviewThreshold
	}

	decision := s.engine.Triage().Decide(doc)
	doc.RequiresManualReview = decision.RequiresReview
	doc.ReviewReasons = decision.Reasons
	if cv != nil && cv.RecommendReview {
		doc.RequiresManualReview = true
		for _, f := range cv.Fields {
			if f.Critical && f.AIValue != "" && f.RegexValue != "" && !f.Match {
				doc.ReviewReasons = append(doc.ReviewReasons, f.Field+" disagrees with regex extraction")
			}
		}
	}
	doc.Warnings = append(doc.Warnings, regexDoc.Warnings...)
	return doc, cv
}

// ExtractPDF extracts text from an uploaded PDF and processes it
func (s *extractionServiceImpl) ExtractPDF(ctx context.Context, sourceName string, data []byte) (*ExtractionResult, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("pdf reading is not configured")
	}
	text, err := s.reader.ReadPDF(ctx, data, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return s.ExtractText(ctx, sourceName, text)
}

// ExtractFile extracts text from a file on disk and processes it
func (s *extractionServiceImpl) ExtractFile(ctx context.Context, path string) (*ExtractionResult, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("file reading is not configured")
	}
	text, err := s.reader.ReadText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return s.ExtractText(ctx, path, text)
}

// GetDocument returns a stored document
func (s *extractionServiceImpl) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	return s.repo.GetByID(ctx, id)
}

// ListDocuments lists stored documents
func (s *extractionServiceImpl) ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.DocumentRecord, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	return s.repo.List(ctx, filter)
}

// MarkReviewed clears a document from the review queue
func (s *extractionServiceImpl) MarkReviewed(ctx context.Context, id string) (*models.DocumentRecord, error) {
	if s.repo == nil {
		return nil, ErrStorageDisabled
	}
	if err := s.repo.MarkReviewed(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("Document reviewed", zap.String("id", id))
	return s.repo.GetByID(ctx, id)
}

// Export writes matching documents as a spreadsheet
func (s *extractionServiceImpl) Export(ctx context.Context, w io.Writer, filter models.DocumentFilter) error {
	if s.repo == nil {
		return ErrStorageDisabled
	}
	if s.exporter == nil {
		return fmt.Errorf("export is not configured")
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return err
	}
	return s.exporter.Write(w, records)
}
