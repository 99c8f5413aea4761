package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/extraction"
	"github.com/zombor/receipt-scanner/internal/extraction/config"
	"github.com/zombor/receipt-scanner/internal/logging"
	"github.com/zombor/receipt-scanner/internal/receipt"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-scanner")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbType         = fs.StringLong("db", "bolt", "Database backend: 'bolt' or 'postgres'")
		dbPath         = fs.StringLong("db-path", "receipts.db", "BoltDB file path")
		postgresDSN    = fs.StringLong("postgres-dsn", "", "PostgreSQL connection string")
		postgresConns  = fs.IntLong("postgres-max-conns", 10, "PostgreSQL pool size")
		storagePath    = fs.StringLong("storage", "./receipts", "Storage directory path")
		scannerType    = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini', 'ollama' or 'tesseract'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		tesseractBin   = fs.StringLong("tesseract-bin", "tesseract", "tesseract executable")
		tesseractLang  = fs.StringLong("tesseract-lang", "eng", "tesseract language")
		tessdataDir    = fs.StringLong("tessdata-dir", "", "tesseract trained data directory (optional)")
		extractionConf = fs.StringLong("extraction-config", "", "JSON file with extraction tables (optional)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logJSON        = fs.BoolLong("log-json", "Write logs as JSON")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Setup(logging.Config{Level: logging.ParseLevel(*logLevel), JSON: *logJSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load extraction tables
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

	// Initialize database
	slog.Info("Initializing database...", "type", *dbType)
	var db receipt.DB
	switch *dbType {
	case "bolt":
		db, err = receipt.NewBoltDB(*dbPath)
	case "postgres":
		db, err = receipt.NewPostgresDB(ctx, receipt.PostgresConfig{
			DSN:      *postgresDSN,
			MaxConns: int32(*postgresConns),
		})
	default:
		err = fmt.Errorf("unknown database type %q, want bolt or postgres", *dbType)
	}
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize scanner based on type
	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "tesseract":
		slog.Info("Initializing Tesseract scanner...", "binary", *tesseractBin, "lang", *tesseractLang)
		t := scanning.NewTesseract(scanning.TesseractConfig{
			Binary:      *tesseractBin,
			Lang:        *tesseractLang,
			TessdataDir: *tessdataDir,
		})
		if err := t.Check(ctx); err != nil {
			slog.Error("Tesseract is not available", "error", err)
			os.Exit(1)
		}
		scanner = t
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or tesseract")
		os.Exit(1)
	}
	defer scanner.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, scanner, store, engine)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}
