// File path: internal/llm/llm.go
package llm

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// NewProviderChain returns every configured provider in fallback order. The
// local provider's chat output is a prompt digest, not an analysis, so it
// joins the chain only when LLM_LOCAL_FALLBACK is explicitly enabled; without
// it an unconfigured chain fails loudly instead of storing canned text.
func NewProviderChain(ctx context.Context) []Provider {
	logger := common.Logger()
	var chain []Provider
	if apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); apiKey != "" {
		if provider, err := providers.NewOpenAIProvider(apiKey); err == nil {
			chain = append(chain, provider)
		} else {
			logger.Warn("llm: OpenAI provider unavailable", "error", err)
		}
	}
	if apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); apiKey != "" {
		if provider, err := providers.NewGeminiProvider(ctx, apiKey); err == nil {
			chain = append(chain, provider)
		} else {
			logger.Warn("llm: Gemini provider unavailable", "error", err)
		}
	}
	fallback := strings.TrimSpace(os.Getenv("LLM_LOCAL_FALLBACK"))
	if fallback == "true" || fallback == "1" {
		chain = append(chain, providers.NewLocalProvider(0))
	}
	if len(chain) == 0 {
		logger.Warn("llm: no chat providers configured; agent extraction will fail until credentials are set")
	}
	logger.Info("llm: provider chain assembled", "providers", len(chain))
	return chain
}

func NormalizeMessages(messages []Message) ([]Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	for i := range messages {
		messages[i].Role = strings.ToLower(messages[i].Role)
	}
	return messages, nil
}
