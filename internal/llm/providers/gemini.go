// File path: internal/llm/providers/gemini.go
package providers

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/nicodishanthj/reqlens/internal/common"
)

type GeminiProvider struct {
	client     *genai.Client
	chatModel  string
	embedModel string
	taskType   string
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	chatModel := os.Getenv("GEMINI_CHAT_MODEL")
	if chatModel == "" {
		chatModel = "gemini-2.0-flash"
	}
	embedModel := os.Getenv("GEMINI_EMBED_MODEL")
	if embedModel == "" {
		embedModel = "gemini-embedding-001"
	}
	common.Logger().Info("llm: Gemini provider configured", "chat_model", chatModel, "embed_model", embedModel)
	return &GeminiProvider{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		taskType:   "RETRIEVAL_DOCUMENT",
	}, nil
}

func (g *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("nil gemini client")
	}
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, contents, nil)
	if err != nil {
		common.Logger().Error("llm: gemini generation failed", "error", err)
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no candidates returned")
	}
	return text, nil
}

func (g *GeminiProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if g.client == nil {
		return nil, fmt.Errorf("nil gemini client")
	}
	if len(input) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(input))
	for i, text := range input {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: g.taskType,
	})
	if err != nil {
		common.Logger().Error("llm: gemini embedding request failed", "error", err)
		return nil, err
	}
	if len(result.Embeddings) != len(input) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(input), len(result.Embeddings))
	}
	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}
