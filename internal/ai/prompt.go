package ai

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxTokens = 512

const systemPrompt = `You maintain CSS locators for a browser bot that clocks workday actions on a time-tracking web application (Bixpe).

You will receive:
1. The action the bot tried to perform: START (begin the workday), PAUSE (general break), RESUME (end the break) or END (finish the workday)
2. The candidate CSS selectors the bot tried, none of which exist on the page any more
3. A page map with the URL, title and every visible interactive control

Pick the control that performs the action. Spanish labels are common: "Empezar" (start), "Pausa General" (pause), "Reanudar" (resume), "Finalizar" (end).

Output a single JSON object:
- "selector": a CSS selector taken from the page map for an element with its own click semantics (a button, link or role=button element, never a bare icon)
- "reason": one sentence on why this control matches
- "confidence": a number from 0 to 1

If no control matches, output {"selector": "", "reason": "...", "confidence": 0}.

Respond ONLY with the JSON object, no explanation or markdown.`

const userPromptTemplate = `Action: %s

Candidates that no longer match:
%s

Page map:
%s`

func buildUserPrompt(req Request) (string, error) {
	pageMapJSON, err := json.MarshalIndent(req.Page, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal page map: %w", err)
	}
	var candidates strings.Builder
	for _, c := range req.Candidates {
		fmt.Fprintf(&candidates, "- %s\n", c)
	}
	return fmt.Sprintf(userPromptTemplate, req.Action, candidates.String(), pageMapJSON), nil
}

// parseSuggestion extracts the JSON object from a response that may carry
// surrounding text or a markdown fence.
func parseSuggestion(response string) (*Suggestion, error) {
	var s Suggestion
	if err := json.Unmarshal([]byte(response), &s); err == nil {
		return &s, nil
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	// Find matching closing brace, skipping braces inside strings
	depth := 0
	end := -1
	inString := false
	for i := start; i < len(response) && end == -1; i++ {
		switch c := response[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}
	if end == -1 {
		return nil, fmt.Errorf("no matching closing brace found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &s); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}
	return &s, nil
}
