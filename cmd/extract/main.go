// Command extract runs field extraction over PDF or text files and prints the
// structured result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/application/service"
	"github.com/garyjia/docextract/internal/config"
	"github.com/garyjia/docextract/internal/container"
	"github.com/garyjia/docextract/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "optional YAML configuration file")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	store := flag.Bool("store", false, "store results in the configured database")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: extract [flags] file...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !*store {
		cfg.Database.Path = ""
	}

	logger, err := utils.NewCLILogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

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

	failed := 0
	for _, path := range flag.Args() {
		result, err := c.Service().ExtractFile(ctx, path)
		if err != nil {
			logger.Error("Extraction failed", zap.String("file", path), zap.Error(err))
			failed++
			continue
		}
		if err := printResult(result, *asJSON); err != nil {
			logger.Error("Failed to print result", zap.String("file", path), zap.Error(err))
			failed++
		}
	}

	if failed > 0 {
		c.Close()
		os.Exit(1)
	}
}

func printResult(result *service.ExtractionResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	doc := result.Record.Document
	fmt.Printf("%s\n", result.Record.SourceName)
	fmt.Printf("  invoice:    %s\n", doc.InvoiceNumber)
	fmt.Printf("  vendor:     %s\n", doc.Vendor.Name)
	if doc.TotalAmount != nil {
		fmt.Printf("  total:      %s\n", doc.TotalAmount.StringFixed(2))
	}
	fmt.Printf("  line items: %d (%s)\n", len(doc.LineItems), doc.LineItemStrategy)
	fmt.Printf("  confidence: %.2f via %s\n", doc.ConfidenceScore, doc.ExtractionMethod)
	if doc.RequiresManualReview {
		fmt.Printf("  review:     %v\n", doc.ReviewReasons)
	}
	for _, w := range doc.Warnings {
		fmt.Printf("  warning:    %s\n", w)
	}
	return nil
}
