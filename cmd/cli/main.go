package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/audit"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/config"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/extract"
	"github.com/ShauryaManiTripathi/finance-tracker-typeface-project-sub001/internal/logger"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(log)
	case "runs":
		runRuns(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Import CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  extract   Run document extraction on a local file and print the result")
	fmt.Println("  runs      List recent extraction runs from the audit trail")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runExtract(log zerolog.Logger) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local receipt image or statement PDF")
	kindName := fs.String("kind", string(extract.KindReceipt), "Document kind: receipt or statement")
	model := fs.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model name (or set GEMINI_MODEL env)")
	mimeType := fs.String("mime", "", "MIME type of the file (defaults from the extension)")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	kind := extract.Kind(*kindName)
	if kind != extract.KindReceipt && kind != extract.KindStatement {
		log.Fatal().Str("kind", *kindName).Msg("Error: kind must be receipt or statement")
	}

	if *mimeType == "" {
		*mimeType = mime.TypeByExtension(filepath.Ext(*filePath))
	}
	if !extract.AllowedMIMEType(kind, *mimeType) {
		log.Fatal().Str("mime", *mimeType).Str("kind", string(kind)).Msg("Error: unsupported MIME type for this kind")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("file", *filePath).
		Str("kind", string(kind)).
		Str("mime", *mimeType).
		Int("bytes", len(data)).
		Msg("Starting extraction")

	extractor := extract.NewGeminiExtractor(*model)
	ext, err := extractor.Extract(ctx, kind, *mimeType, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	var doc interface{}
	switch kind {
	case extract.KindReceipt:
		doc = ext.Receipt
	case extract.KindStatement:
		doc = ext.Statement
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"model":                 ext.ModelName,
		"extractedData":         doc,
		"suggestedTransactions": ext.Candidates,
	}, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}

	fmt.Println(string(out))
}

func runRuns(log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)

	defaultDataset := os.Getenv("BIGQUERY_DATASET")
	if defaultDataset == "" {
		defaultDataset = config.DefaultBigQueryDataset
	}
	project := fs.String("project", os.Getenv("BIGQUERY_PROJECT"), "GCP project ID (or set BIGQUERY_PROJECT env)")
	dataset := fs.String("dataset", defaultDataset, "BigQuery dataset ID (or set BIGQUERY_DATASET env)")
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: --project flag or BIGQUERY_PROJECT env is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sink, err := audit.NewBigQuerySink(ctx, *project, *dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer sink.Close()

	runs, err := sink.ListRecentRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}

	if len(runs) == 0 {
		fmt.Println("No extraction runs recorded.")
		return
	}

	fmt.Printf("\n=== Extraction Runs (%d) ===\n", len(runs))
	for i, run := range runs {
		fmt.Printf("\n%d. %s\n", i+1, run.RunID)
		fmt.Printf("   User:    %s\n", run.UserID)
		fmt.Printf("   Kind:    %s\n", run.Kind)
		fmt.Printf("   Model:   %s\n", run.ModelName)
		fmt.Printf("   Status:  %s\n", run.Status)
		fmt.Printf("   Started: %s\n", run.StartedAt.Format(time.RFC3339))
		if run.PreviewID != "" {
			fmt.Printf("   Preview: %s\n", run.PreviewID)
		}
		if run.ErrorMessage != "" {
			fmt.Printf("   Error:   %s\n", run.ErrorMessage)
		}
	}
	fmt.Println()
}
