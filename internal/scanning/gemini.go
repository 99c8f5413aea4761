package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// geminiAttemptTimeout bounds each GenerateContent call, not the whole retry loop.
const geminiAttemptTimeout = 30 * time.Second

// generateFunc is the model call, replaceable in tests.
type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client         *genai.Client
	generate       generateFunc
	attemptTimeout time.Duration
	retryDelay     time.Duration
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Transcription should be as literal as the model allows.
	model.SetTemperature(0)

	return &Gemini{
		client:         client,
		generate:       model.GenerateContent,
		attemptTimeout: geminiAttemptTimeout,
		retryDelay:     2 * time.Second,
	}, nil
}

// ScanText transcribes the receipt with Gemini
func (g *Gemini) ScanText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects the format suffix ("png"), not the MIME type
	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(transcriptionPrompt),
	}

	var resp *genai.GenerateContentResponse
	err = retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
			defer cancel()

			var err error
			resp, err = g.generate(attemptCtx, parts...)
			return err
		},
		retry.RetryIf(func(err error) bool {
			if isTransientGoogleError(err) {
				slog.Warn("gemini request failed, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(scanAttempts),
		retry.Delay(g.retryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return cleanTranscript(text.String()), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// isTransientGoogleError reports rate limiting and server-side failures.
func isTransientGoogleError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
