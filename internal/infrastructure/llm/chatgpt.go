package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"MICDataset/internal/domain"
	"MICDataset/internal/infrastructure/resilience"
	"MICDataset/internal/ports"
)

const (
	ChatGPTBackend         = "chatgpt"
	DefaultChatGPTEndpoint = "https://api.openai.com/v1/chat/completions"
)

// ChatGPTConfig configures the raw chat completions client.
type ChatGPTConfig struct {
	Endpoint    string
	Model       string
	APIKey      string
	Temperature float32
	// StrictSchema sends response_format json_schema; otherwise json_object.
	StrictSchema bool
}

// ChatGPTClient implements ports.Classifier against OpenAI-compatible chat completions.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	temperature  float32
	strictSchema bool
	httpClient   *http.Client
}

var _ ports.Classifier = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration. Deadlines come from the caller's context.
func NewChatGPTClient(cfg ChatGPTConfig, httpClient *http.Client) *ChatGPTClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultChatGPTEndpoint
	}
	return &ChatGPTClient{
		endpoint:     endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		temperature:  cfg.Temperature,
		strictSchema: cfg.StrictSchema,
		httpClient:   httpClient,
	}
}

func (c *ChatGPTClient) Name() string { return ChatGPTBackend }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Classify posts the system and user turns and returns the first choice's content.
func (c *ChatGPTClient) Classify(ctx context.Context, req domain.ClassificationRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: domain.RoleSystem, Content: req.System},
			{Role: domain.RoleUser, Content: req.User},
		},
		Temperature:    c.temperature,
		ResponseFormat: c.responseFormat(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send article %d: %w", req.ArticleID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &resilience.HTTPStatusError{
			Operation:  "chatgpt classify",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(payload),
		}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chatgpt response has no choices")
	}
	choice := decoded.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("chatgpt refused article %d: %s", req.ArticleID, choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

func (c *ChatGPTClient) responseFormat() map[string]any {
	if !c.strictSchema {
		return map[string]any{"type": "json_object"}
	}
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   ResponseSchemaName,
			"strict": true,
			"schema": ResponseSchema(),
		},
	}
}
