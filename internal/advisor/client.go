package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Google Generative Language API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model used for recommendations.
	DefaultModel = "gemini-1.5-flash"

	// DefaultTimeout bounds a single generation request.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a reply is read.
	maxResponseBytes = 1 << 20
)

var (
	// ErrNoCredential means no API key is configured.
	ErrNoCredential = errors.New("advisor: API key not set")

	// ErrUnauthorized means the API rejected the key.
	ErrUnauthorized = errors.New("advisor: API key rejected")

	// ErrQuota means the API rate or quota limit was hit.
	ErrQuota = errors.New("advisor: quota exhausted")

	// ErrEmptyResponse means the model returned no usable text.
	ErrEmptyResponse = errors.New("advisor: empty model response")
)

// Config holds advisor client configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls the Gemini generateContent endpoint. A request is made
// once, with no retries; transient failures surface to the caller, who
// shows them inline.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewClient creates a Gemini client. An empty API key is allowed; requests
// then fail with ErrNoCredential.
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		apiKey:     strings.TrimSpace(config.APIKey),
		model:      config.Model,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		timeout:    config.Timeout,
		logger:     logger.With().Str("component", "advisor").Logger(),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends one prompt and returns the model's text, stripped of
// surrounding whitespace.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header so it never shows up in request URLs
	// quoted by transport errors or logs.
	req.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug().Str("model", c.model).Int("prompt_bytes", len(prompt)).Msg("Requesting recommendations")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.apiError(resp.StatusCode, data)
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	text := candidateText(parsed)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// apiError maps an HTTP failure to a sentinel error, keeping any message
// the API sent.
func (c *Client) apiError(status int, body []byte) error {
	var parsed apiErrorResponse
	message := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		message = parsed.Error.Message
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, message)
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrQuota, message)
		}
		return ErrQuota
	}

	if message != "" {
		return fmt.Errorf("API error (HTTP %d): %s", status, message)
	}
	return fmt.Errorf("API error (HTTP %d)", status)
}

// candidateText joins the text parts of the first candidate.
func candidateText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
