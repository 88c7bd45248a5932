package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"medpipe_backend/config"
	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/utils"
)

// ModelProfile names a configured model deployment.
type ModelProfile string

const (
	ProfileStandard ModelProfile = "standard" // 32k context
	ProfileLarge    ModelProfile = "large"    // 128k context
)

// Message is a chat message; Role is "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

type LanguageModel interface {
	Complete(ctx context.Context, profile ModelProfile, messages []Message) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// OpenAIClient talks to OpenAI or an Azure OpenAI resource.
type OpenAIClient struct {
	client   *openai.Client
	models   map[ModelProfile]string
	embedder openai.EmbeddingModel
}

func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	var oc openai.ClientConfig
	if cfg.LLMProvider == "azure" {
		oc = openai.DefaultAzureConfig(cfg.LLMAPIKey, cfg.LLMEndpoint)
	} else {
		oc = openai.DefaultConfig(cfg.LLMAPIKey)
		if cfg.LLMEndpoint != "" {
			oc.BaseURL = cfg.LLMEndpoint
		}
	}
	logging.Logger.Info("LLM client initialized",
		"provider", cfg.LLMProvider,
		"apiKey", utils.MaskAPIKey(cfg.LLMAPIKey),
		"standard", cfg.ModelStandard,
		"large", cfg.ModelLarge,
	)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		models: map[ModelProfile]string{
			ProfileStandard: cfg.ModelStandard,
			ProfileLarge:    cfg.ModelLarge,
		},
		embedder: openai.EmbeddingModel(cfg.EmbeddingModel),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, profile ModelProfile, messages []Message) (string, error) {
	model, ok := c.models[profile]
	if !ok || model == "" {
		return "", fmt.Errorf("no model configured for profile %q: %w", profile, models.ErrInvalidInput)
	}
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: oaMsgs,
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion from %s: %w", model, models.ErrMalformedOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: c.embedder,
	})
	if err != nil {
		return nil, classifyError(err)
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

// classifyError turns provider throttling into models.ErrRateLimited.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w", apiErr.Message, models.ErrRateLimited)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%v: %w", reqErr.Err, models.ErrRateLimited)
	}
	return err
}
