package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/v0xg/clockin/internal/config"
)

// ClaudeAdvisor asks Anthropic's Claude for a locator.
type ClaudeAdvisor struct {
	client *anthropic.Client
	model  string
}

// NewClaudeAdvisor creates a Claude advisor
func NewClaudeAdvisor(cfg config.AdvisorConfig) (*ClaudeAdvisor, error) {
	key := apiKey(cfg.APIKey, "CLOCKIN_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("advisor.api_key, CLOCKIN_ANTHROPIC_KEY or ANTHROPIC_API_KEY required")
	}

	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeAdvisor{
		client: &client,
		model:  model,
	}, nil
}

// Suggest asks for the control that performs req.Action.
func (a *ClaudeAdvisor) Suggest(ctx context.Context, req Request) (*Suggestion, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	s, err := parseSuggestion(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response: %w\nResponse: %s", err, responseText)
	}
	return s, nil
}
