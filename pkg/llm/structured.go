package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nxtscape/webpilot/pkg/types"
)

// CompleteJSON runs a single non-streaming completion and unmarshals the
// response into out. Models frequently wrap JSON in markdown fences or
// surround it with prose, so the first balanced JSON object in the response
// is extracted before unmarshaling.
//
// A transport failure is returned as-is; a response with no parseable JSON
// object is a decode error naming the offending content.
func CompleteJSON(ctx context.Context, provider Provider, messages []*types.Message, out interface{}) error {
	response, err := provider.Complete(ctx, messages)
	if err != nil {
		return err
	}

	payload, err := extractJSONObject(response.Content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to decode structured response: %w", err)
	}
	return nil
}

// extractJSONObject returns the first balanced top-level JSON object in text.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Strip a markdown code fence if the whole response is fenced.
	if strings.HasPrefix(text, "```") {
		if end := strings.LastIndex(text, "```"); end > 0 {
			text = text[:end]
		}
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in model response: %q", truncate(text, 200))
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in model response: %q", truncate(text, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
