// Package container provides dependency injection and lifecycle management
// for the document extraction service.
package container

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/aitier"
	"github.com/garyjia/docextract/internal/application/port"
	"github.com/garyjia/docextract/internal/application/service"
	"github.com/garyjia/docextract/internal/config"
	"github.com/garyjia/docextract/internal/export"
	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/internal/pdftext"
	"github.com/garyjia/docextract/internal/repository"
	"github.com/garyjia/docextract/pkg/database"
)

// ProvideDatabase opens the SQLite database and runs pending migrations.
func ProvideDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// ProvideRepository creates the document repository.
func ProvideRepository(db *database.DB, logger *zap.Logger) port.DocumentRepository {
	return repository.NewDocumentRepository(db.DB, logger)
}

// ProvideReader creates the PDF and plain-text reader.
func ProvideReader(logger *zap.Logger) port.TextReader {
	return pdftext.NewReader(pdftext.DefaultMaxPages, logger)
}

// ProvideExporter creates the spreadsheet exporter.
func ProvideExporter(cfg config.ExportConfig, logger *zap.Logger) port.Exporter {
	return export.NewExcelExporter(cfg.MaxRows, logger)
}

// ProvideAIExtractor creates the OpenAI extractor. A nil extractor with a nil
// error means the AI tier is disabled.
func ProvideAIExtractor(cfg config.OpenAIConfig, logger *zap.Logger) (aitier.Extractor, error) {
	extractor, err := aitier.NewOpenAIExtractor(aitier.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, logger)
	if errors.Is(err, aitier.ErrAITierDisabled) {
		logger.Info("AI extraction tier disabled, no API key configured")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return extractor, nil
}

// ProvideEngine creates the regex extraction engine from configuration.
func ProvideEngine(cfg config.ExtractionConfig, logger *zap.Logger) *extraction.Engine {
	opts := extraction.DefaultOptions()
	if len(cfg.KnownVendors) > 0 {
		opts.KnownVendors = cfg.KnownVendors
	}
	if cfg.HeuristicLineWindow > 0 {
		opts.HeuristicWindow = cfg.HeuristicLineWindow
	}
	if cfg.ReviewThreshold > 0 {
		opts.Triage = extraction.TriagePolicy{ReviewThreshold: cfg.ReviewThreshold}
	}
	return extraction.NewEngine(opts, logger)
}

// ServiceDeps holds dependencies of the extraction service.
type ServiceDeps struct {
	Engine   *extraction.Engine
	AI       aitier.Extractor
	Repo     port.DocumentRepository
	Reader   port.TextReader
	Exporter port.Exporter
	Config   config.ExtractionConfig
	Logger   *zap.Logger
}

// ProvideService creates the extraction service.
func ProvideService(deps *ServiceDeps) service.ExtractionService {
	return service.NewExtractionService(
		deps.Engine,
		deps.AI,
		deps.Repo,
		deps.Reader,
		deps.Exporter,
		service.Options{
			MaxTextBytes:  deps.Config.MaxTextBytes,
			CrossValidate: deps.Config.CrossValidate,
		},
		deps.Logger,
	)
}
