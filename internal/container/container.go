package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/aitier"
	"github.com/garyjia/docextract/internal/application/port"
	"github.com/garyjia/docextract/internal/application/service"
	"github.com/garyjia/docextract/internal/config"
	"github.com/garyjia/docextract/internal/extraction"
	"github.com/garyjia/docextract/pkg/database"
)

// Container manages application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db       *database.DB
	repo     port.DocumentRepository
	reader   port.TextReader
	exporter port.Exporter
	ai       aitier.Extractor

	// Application
	engine  *extraction.Engine
	service service.ExtractionService

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a container from configuration.
// It does not initialize components; call Start.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, migrations and repository (skipped when no database path is set)
// 2. Document reader, exporter and the optional AI tier
// 3. Extraction engine and service
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if c.config.Database.Path != "" {
		db, err := ProvideDatabase(ctx, c.config.Database, c.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		c.db = db
		c.repo = ProvideRepository(db, c.logger)
		c.logger.Info("Database initialized", zap.String("path", c.config.Database.Path))
	} else {
		c.logger.Info("Document storage disabled")
	}

	c.reader = ProvideReader(c.logger)
	c.exporter = ProvideExporter(c.config.Export, c.logger)

	ai, err := ProvideAIExtractor(c.config.OpenAI, c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize AI tier: %w", err)
	}
	c.ai = ai

	c.engine = ProvideEngine(c.config.Extraction, c.logger)
	c.service = ProvideService(&ServiceDeps{
		Engine:   c.engine,
		AI:       c.ai,
		Repo:     c.repo,
		Reader:   c.reader,
		Exporter: c.exporter,
		Config:   c.config.Extraction,
		Logger:   c.logger,
	})

	c.ready.Store(true)
	c.logger.Info("Container started",
		zap.Bool("storage", c.repo != nil),
		zap.Bool("ai_tier", c.ai != nil))
	return nil
}

// Close releases resources in reverse initialization order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	err := c.closeDatabase()
	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) closeDatabase() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	}
	return err
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components. Disabled optional
// components are reported healthy with a message.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    c.ready.Load(),
		Components: make(map[string]ComponentHealth),
	}

	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	if c.ai != nil {
		status.Components["ai_tier"] = ComponentHealth{Healthy: true, Message: c.config.OpenAI.Model}
	} else {
		status.Components["ai_tier"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	if c.service != nil {
		status.Components["extraction"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["extraction"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// Service returns the extraction service.
func (c *Container) Service() service.ExtractionService {
	return c.service
}

// Engine returns the regex extraction engine.
func (c *Container) Engine() *extraction.Engine {
	return c.engine
}

// Logger returns the container logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
