package grounding

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/types"
)

// maxListingTokens bounds the element listings included in the prompt.
// Pages with thousands of interactive elements would otherwise blow the
// context window; candidates past the budget are dropped with a note, they
// simply become unmatchable this round.
const maxListingTokens = 4000

const systemPrompt = `You locate one element on a web page from a description.

Each candidate element is listed as one line:
  [id] <glyph> <tag> "name" ctx:"surrounding text" path:"ancestor>chain" attr:"k=v ..."
The glyph is * for clickable elements and > for typeable elements.

Respond with a single JSON object and nothing else:
  {"found": true|false, "index": <id>, "confidence": "high"|"medium"|"low", "reasoning": "<why>"}

Rules:
- "index" must be an id that appears in the candidate list.
- If no candidate matches the description, respond with found=false and explain why.
- Never invent ids.`

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// countTokens estimates token usage with the cl100k_base encoding, falling
// back to a character heuristic when the encoding is unavailable offline.
func countTokens(text string) int {
	encoderOnce.Do(func() {
		encoder, _ = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	})
	if encoder == nil {
		return len(text) / 4
	}
	return len(encoder.Encode(text, nil, nil))
}

// truncateListing keeps whole lines of the listing up to the token budget.
func truncateListing(listing string, budget int) (string, bool) {
	if countTokens(listing) <= budget {
		return listing, false
	}

	lines := strings.Split(listing, "\n")
	var sb strings.Builder
	used := 0
	for _, line := range lines {
		cost := countTokens(line) + 1
		if used+cost > budget {
			return sb.String(), true
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line)
		used += cost
	}
	return sb.String(), false
}

// buildPrompt assembles the grounding conversation: the candidate listings,
// the description, and the screenshot when one is available.
func buildPrompt(state *browser.State, description, intent string) []*types.Message {
	clickable, clickTrunc := truncateListing(state.ClickableElementsString, maxListingTokens/2)
	typeable, typeTrunc := truncateListing(state.TypeableElementsString, maxListingTokens/2)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Page: %s (%s)\n\n", state.Title, state.URL)

	sb.WriteString("Clickable elements:\n")
	if clickable == "" {
		sb.WriteString("(none)\n")
	} else {
		sb.WriteString(clickable + "\n")
	}
	if clickTrunc {
		sb.WriteString("(listing truncated)\n")
	}

	sb.WriteString("\nTypeable elements:\n")
	if typeable == "" {
		sb.WriteString("(none)\n")
	} else {
		sb.WriteString(typeable + "\n")
	}
	if typeTrunc {
		sb.WriteString("(listing truncated)\n")
	}

	fmt.Fprintf(&sb, "\nFind the element matching: %q\n", description)
	if intent != "" {
		fmt.Fprintf(&sb, "The agent wants to: %s\n", intent)
	}

	user := types.NewUserMessage(sb.String())
	if state.ScreenshotB64 != "" {
		user.WithImage(state.ScreenshotB64)
	}

	return []*types.Message{
		types.NewSystemMessage(systemPrompt),
		user,
	}
}
