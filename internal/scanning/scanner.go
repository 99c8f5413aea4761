package scanning

import (
	"context"
	"log/slog"
	"time"
)

// Scanner turns a receipt image into the text printed on it.
type Scanner interface {
	// ScanText runs OCR over a receipt image or PDF and returns the raw text
	ScanText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// scanAttempts is how many times remote scanners try a transient failure.
const scanAttempts = 3

// transcriptionPrompt is the shared prompt used by the LLM scanners. The
// models only transcribe; field extraction happens on the text afterwards.
const transcriptionPrompt = `You are an OCR engine. Transcribe every piece of text printed on this receipt or invoice exactly as it appears.

Rules:
- Keep the original line structure: one printed line per output line, top to bottom.
- Copy numbers, currency symbols, dates and punctuation exactly. Do not convert, round or reformat anything.
- Do not summarize, translate, explain or add any text of your own.
- Do not use markdown or code blocks.
- If the image contains no readable text, reply with an empty message.`

// ReadText runs the scanner and returns its text. Any failure is logged and
// yields empty text, so callers always get something to extract from.
func ReadText(ctx context.Context, s Scanner, imageData []byte, contentType string) string {
	if s == nil {
		return ""
	}

	start := time.Now()
	text, err := s.ScanText(ctx, imageData, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt text",
			"content_type", contentType,
			"file_size", len(imageData),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return ""
	}

	slog.Debug("Scanned receipt text",
		"content_type", contentType,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text
}
