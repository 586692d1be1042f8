package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"MICDataset/internal/domain"
	"MICDataset/internal/ports"
)

const OpenAIBackend = "openai"

// EinoConfig selects the model behind the eino chat component.
type EinoConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// EinoClassifier implements ports.Classifier on top of an eino ChatModel.
type EinoClassifier struct {
	chatModel   model.ChatModel
	temperature float32
}

var _ ports.Classifier = (*EinoClassifier)(nil)

// NewEinoClassifier creates the OpenAI chat model and wraps it.
func NewEinoClassifier(ctx context.Context, cfg EinoConfig) (*EinoClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for backend %s", OpenAIBackend)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return NewEinoClassifierWithModel(chatModel, cfg.Temperature), nil
}

// NewEinoClassifierWithModel wraps an existing chat model.
func NewEinoClassifierWithModel(chatModel model.ChatModel, temperature float32) *EinoClassifier {
	return &EinoClassifier{chatModel: chatModel, temperature: temperature}
}

func (e *EinoClassifier) Name() string { return OpenAIBackend }

// Classify sends the system and user turns and returns the assistant content.
func (e *EinoClassifier) Classify(ctx context.Context, req domain.ClassificationRequest) (string, error) {
	if e == nil || e.chatModel == nil {
		return "", fmt.Errorf("chat model is not configured")
	}
	messages := []*schema.Message{
		{Role: schema.System, Content: req.System},
		{Role: schema.User, Content: req.User},
	}
	resp, err := e.chatModel.Generate(ctx, messages, model.WithTemperature(e.temperature))
	if err != nil {
		return "", fmt.Errorf("generate article %d: %w", req.ArticleID, err)
	}
	if resp == nil {
		return "", fmt.Errorf("generate article %d: empty message", req.ArticleID)
	}
	return resp.Content, nil
}
