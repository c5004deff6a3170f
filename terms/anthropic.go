package terms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	defaultModel        = "claude-sonnet-4-20250514"
)

// AnthropicIdentifier identifies redaction terms through the Anthropic
// messages API.
type AnthropicIdentifier struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropic builds an API-backed identifier. The key comes from
// ANTHROPIC_API_KEY; a missing key is an availability failure, reported when
// the identifier is constructed rather than mid-run.
func NewAnthropic(model string) (*AnthropicIdentifier, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrUnavailable)
	}
	if model == "" {
		model = defaultModel
	}
	return &AnthropicIdentifier{
		apiKey: key,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *AnthropicIdentifier) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Identify sends the identification prompt and parses the term array from
// the reply. Rate-limit responses are retried with backoff.
func (a *AnthropicIdentifier) Identify(ctx context.Context, documentText string) ([]string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: 4096,
		Messages:  []anthropicMessage{{Role: "user", Content: buildPrompt(documentText)}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var reply string
	backoff := time.Second
	for attempt := 0; attempt < 3; attempt++ {
		reply, err = a.once(ctx, payload)
		if err == nil {
			break
		}
		var rl *rateLimitError
		if !errors.As(err, &rl) || attempt == 2 {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return parseTermArray(reply)
}

func (a *AnthropicIdentifier) once(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &rateLimitError{}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: API rejected credentials (status %d)", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: API status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

type rateLimitError struct{}

func (*rateLimitError) Error() string { return "rate limited" }
