package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// Ollama implements the Scanner interface using a local Ollama server
type Ollama struct {
	baseURL    string
	model      string
	client     *http.Client
	retryDelay time.Duration
}

// NewOllama creates a new Ollama Scanner instance.
// Vision models that read receipts reasonably well:
//   - llava:1.6
//   - qwen2.5vl:7b (good OCR capabilities)
//   - llama3.2-vision
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow on CPU
		},
		retryDelay: 2 * time.Second,
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

var errOllamaTransport = errors.New("calling ollama API")

// ollamaStatusError is a non-200 reply from the Ollama API.
type ollamaStatusError struct {
	code int
	body string
}

func (e *ollamaStatusError) Error() string {
	return fmt.Sprintf("ollama API error (status %d): %s", e.code, e.body)
}

// ScanText transcribes the receipt with the configured vision model
func (o *Ollama) ScanText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := toPNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You read receipts and invoices and transcribe their text verbatim.",
			},
			{
				Role:    "user",
				Content: transcriptionPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
		Options: map[string]any{"temperature": 0},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var chatResp ollamaChatResponse
	err = retry.Do(
		func() error {
			var err error
			chatResp, err = o.chat(ctx, payload)
			return err
		},
		retry.RetryIf(func(err error) bool {
			if isTransientOllamaError(err) {
				slog.Warn("ollama request failed, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(scanAttempts),
		retry.Delay(o.retryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return "", err
	}

	return cleanTranscript(chatResp.Message.Content), nil
}

func (o *Ollama) chat(ctx context.Context, payload []byte) (ollamaChatResponse, error) {
	var chatResp ollamaChatResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return chatResp, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return chatResp, fmt.Errorf("%w: %w", errOllamaTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return chatResp, &ollamaStatusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return chatResp, fmt.Errorf("decoding response: %w", err)
	}
	return chatResp, nil
}

// Close closes the Ollama client (no-op for HTTP client)
func (o *Ollama) Close() error {
	return nil
}

// isTransientOllamaError retries server errors and transport failures but not
// bad requests such as an unknown model.
func isTransientOllamaError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *ollamaStatusError
	if errors.As(err, &statusErr) {
		return statusErr.code == http.StatusTooManyRequests || statusErr.code >= http.StatusInternalServerError
	}
	return errors.Is(err, errOllamaTransport)
}
