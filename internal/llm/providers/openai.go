// File path: internal/llm/providers/openai.go
package providers

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nicodishanthj/reqlens/internal/common"
)

type OpenAIProvider struct {
	client     *openai.Client
	chatModel  string
	embedModel openai.EmbeddingModel
}

func NewOpenAIProvider(apiKey string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if endpoint := os.Getenv("OPENAI_ENDPOINT"); endpoint != "" {
		cfg.BaseURL = endpoint
	}
	chatModel := os.Getenv("OPENAI_CHAT_MODEL")
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}
	embedModel := openai.EmbeddingModel(os.Getenv("OPENAI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = openai.SmallEmbedding3
	}
	logger := common.Logger()
	logger.Info("llm: OpenAI provider configured", "chat_model", chatModel, "embed_model", embedModel)
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if o.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	logger := common.Logger()
	req := openai.ChatCompletionRequest{
		Model:       o.chatModel,
		Temperature: 0.2,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.Error("llm: openai chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if o.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	if len(input) == 0 {
		return nil, nil
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: o.embedModel,
		Input: input,
	})
	if err != nil {
		common.Logger().Error("llm: openai embedding request failed", "error", err)
		return nil, err
	}
	vectors := make([][]float32, 0, len(resp.Data))
	for _, data := range resp.Data {
		vectors = append(vectors, data.Embedding)
	}
	return vectors, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}
