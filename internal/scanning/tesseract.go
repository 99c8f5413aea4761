package scanning

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	slog.Debug("exec finished",
		"cmd", name,
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", out.Len(),
		"error", err,
	)
	return out.Bytes(), errb.Bytes(), err
}

// TesseractConfig configures the local tesseract scanner.
type TesseractConfig struct {
	// Binary is the tesseract executable, "tesseract" when empty.
	Binary string
	// Lang is passed to -l, "eng" when empty.
	Lang string
	// TessdataDir overrides the trained data directory when set.
	TessdataDir string
}

// Tesseract implements the Scanner interface by running the tesseract CLI
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract creates a Tesseract scanner that executes the real binary.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	return NewTesseractWithRunner(cfg, execRunner{})
}

// NewTesseractWithRunner creates a Tesseract scanner with a custom command runner
func NewTesseractWithRunner(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// Check verifies that the binary can be executed.
func (t *Tesseract) Check(ctx context.Context) error {
	if _, _, err := t.runner.Run(ctx, t.cfg.Binary, "--version"); err != nil {
		return fmt.Errorf("running %s --version: %w", t.cfg.Binary, err)
	}
	return nil
}

// ScanText runs tesseract over the receipt: tesseract <file> stdout -l <lang>
func (t *Tesseract) ScanText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(pngData); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp image: %w", err)
	}

	args := []string{f.Name(), "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return CleanText(string(out)), nil
}

// Close is a no-op; every scan runs its own process
func (t *Tesseract) Close() error {
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
