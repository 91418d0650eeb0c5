package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/config"
	"github.com/garyjia/docextract/internal/container"
	httpserver "github.com/garyjia/docextract/internal/interfaces/http"
	"github.com/garyjia/docextract/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting document extraction service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	health := c.Health(ctx)
	for name, component := range health.Components {
		logger.Info("Component status",
			zap.String("component", name),
			zap.Bool("healthy", component.Healthy),
			zap.String("message", component.Message))
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}, c.Service(), logger)

	// Blocks until SIGINT or SIGTERM, then shuts down gracefully
	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return
	}

	logger.Info("Server exited successfully")
}
