package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// OpenAIConfig configures a client for OpenAI-compatible endpoints, including
// vLLM and Ollama servers that speak the same wire format.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
}

// OpenAIClient talks to /chat/completions and /embeddings.
type OpenAIClient struct {
	cfg OpenAIConfig
}

// NewOpenAIClient builds a backend client. APIKey and BaseURL fall back to
// the OPENAI_API_KEY and OPENAI_BASE_URL environment variables.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai client: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIClient{cfg: cfg}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	model := req.ModelID
	if model == "" {
		model = c.cfg.Model
	}
	payload := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", Transient(fmt.Errorf("decode chat response: %w", err))
	}
	if parsed.Error != nil {
		return "", Fatal(fmt.Errorf("chat completion: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	msg := parsed.Choices[0].Message
	if msg.Refusal != "" {
		c.cfg.Logger.Warn().Str("model", model).Msg("backend refused the request")
		return "", nil
	}
	return msg.Content, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := c.post(ctx, "/embeddings", embeddingRequest{
		Model: c.cfg.EmbeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, err
	}
	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, Transient(fmt.Errorf("decode embedding response: %w", err))
	}
	if parsed.Error != nil {
		return nil, Fatal(fmt.Errorf("embedding: %s", parsed.Error.Message))
	}
	if len(parsed.Data) == 0 {
		return nil, Transient(fmt.Errorf("embedding response carried no vectors"))
	}
	return parsed.Data[0].Embedding, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, Transient(fmt.Errorf("%s: %w", path, err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, Transient(fmt.Errorf("read %s response: %w", path, err))
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, Transient(fmt.Errorf("%s: status %d", path, resp.StatusCode))
	default:
		return nil, Fatal(fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body))))
	}
}
