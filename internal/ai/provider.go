// Package ai asks a language model for a replacement locator when the
// built-in table no longer matches the site.
package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/v0xg/clockin/internal/config"
	"github.com/v0xg/clockin/internal/crawler"
)

// Request describes an action whose candidates all failed to resolve.
type Request struct {
	Action     string
	Candidates []string
	Page       *crawler.PageMap
}

// Suggestion is a proposed candidate. It is only ever reported, never used
// to click.
type Suggestion struct {
	Selector   string  `json:"selector"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Advisor proposes a locator for an unresolved action.
type Advisor interface {
	Suggest(ctx context.Context, req Request) (*Suggestion, error)
}

// NewAdvisor returns the advisor for cfg.Provider, or nil when none is
// configured.
func NewAdvisor(cfg config.AdvisorConfig) (Advisor, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude", "anthropic":
		return NewClaudeAdvisor(cfg)
	case "openai", "gpt":
		return NewOpenAIAdvisor(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", cfg.Provider)
	}
}

// apiKey prefers the configured key, then the given environment variables.
func apiKey(configured string, envs ...string) string {
	if configured != "" {
		return configured
	}
	for _, name := range envs {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
