package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/extraction"
	"github.com/zombor/receipt-scanner/internal/extraction/config"
	"github.com/zombor/receipt-scanner/internal/logging"
)

func main() {
	fs := ff.NewFlagSet("receipt-extract")
	var (
		jobs           = fs.IntLong("jobs", runtime.NumCPU(), "Files processed concurrently")
		extractionConf = fs.StringLong("extraction-config", "", "JSON file with extraction tables (optional)")
		logLevel       = fs.StringLong("log-level", "warn", "Log level: debug, info, warn or error")
		logJSON        = fs.BoolLong("log-json", "Write logs as JSON")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_EXTRACT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs, "receipt-extract [flags] [file ...]"))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{Level: logging.ParseLevel(*logLevel), JSON: *logJSON})

	cfg, err := config.Load(*extractionConf)
	if err != nil {
		slog.Error("Failed to load extraction config", "error", err)
		os.Exit(1)
	}
	engine, err := extraction.NewEngine(cfg)
	if err != nil {
		slog.Error("Invalid extraction config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed, err := newBatch(engine, *jobs, os.Stdin).run(ctx, fs.GetArgs(), os.Stdout)
	if err != nil {
		slog.Error("Batch failed", "error", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
