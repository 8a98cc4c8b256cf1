package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/v0xg/clockin/internal/config"
)

// OpenAIAdvisor asks an OpenAI chat model for a locator.
type OpenAIAdvisor struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdvisor creates an OpenAI advisor
func NewOpenAIAdvisor(cfg config.AdvisorConfig) (*OpenAIAdvisor, error) {
	key := apiKey(cfg.APIKey, "CLOCKIN_OPENAI_KEY", "OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("advisor.api_key, CLOCKIN_OPENAI_KEY or OPENAI_API_KEY required")
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIAdvisor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Suggest asks for the control that performs req.Action.
func (a *OpenAIAdvisor) Suggest(ctx context.Context, req Request) (*Suggestion, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	s, err := parseSuggestion(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w\nResponse: %s", err, responseText)
	}
	return s, nil
}
