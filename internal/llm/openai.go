package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/raglab/arxrag/internal/config"
)

const (
	openaiDefaultBaseURL = "https://api.openai.com/v1"
	openaiTimeout        = 60 * time.Second
	openaiMaxRetries     = 3
	openaiInitialBackoff = 500 * time.Millisecond
)

// OpenAIClient talks to any OpenAI-compatible chat/embeddings API: the
// OpenAI Platform, OpenRouter, or a company gateway fronting one of them.
// Request bodies are built explicitly in this package, so unsupported fields
// are simply never sent.
type OpenAIClient struct {
	baseURL        string
	model          string
	embeddingModel string
	httpClient     *http.Client

	// Exactly one auth scheme applies: Bearer apiKey, or Basic
	// base64(username:password) for gateway deployments.
	apiKey    string
	basicAuth string

	referer string
	title   string
}

// NewOpenAIClient creates a client from the OpenAI section of the config.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}

	c := &OpenAIClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		referer:        cfg.HTTPReferer,
		title:          cfg.XTitle,
		httpClient: &http.Client{
			Timeout: openaiTimeout,
		},
	}
	if cfg.AuthUsername != "" && cfg.AuthPassword != "" {
		token := cfg.AuthUsername + ":" + cfg.AuthPassword
		c.basicAuth = base64.StdEncoding.EncodeToString([]byte(token))
	}
	return c
}

// chatRequest is the JSON body for POST /chat/completions.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, tools []Tool) (Message, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Message{}, fmt.Errorf("marshaling chat request: %w", err)
	}

	respBody, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return Message{}, err
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Message{}, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return Message{}, fmt.Errorf("chat: response contains no choices")
	}
	return result.Choices[0].Message, nil
}

// embedRequest is the JSON body for POST /embeddings.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.embeddingModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	respBody, err := c.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embed: empty data array")
	}
	return result.Data[0].Embedding, nil
}

// post sends the body with retries on HTTP 429 (bounded exponential backoff)
// and returns the response body.
func (c *OpenAIClient) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := range openaiMaxRetries {
		respBody, err := c.doPost(ctx, path, body)
		if err == nil {
			return respBody, nil
		}
		if !isRateLimit(err) {
			return nil, err
		}

		lastErr = err
		if attempt < openaiMaxRetries-1 {
			backoff := time.Duration(float64(openaiInitialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("rate limited after %d retries: %w", openaiMaxRetries, lastErr)
}

func (c *OpenAIClient) doPost(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}

func (c *OpenAIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.basicAuth != "" {
		req.Header.Set("Authorization", "Basic "+c.basicAuth)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}
