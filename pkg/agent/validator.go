package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/llm"
	"github.com/nxtscape/webpilot/pkg/types"
)

// Validation is the structured judgment over whether a task is complete.
type Validation struct {
	IsComplete  bool     `json:"isComplete"`
	Reasoning   string   `json:"reasoning"`
	Confidence  string   `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Validator judges task completion from the current page state and the
// action history. One LLM call per judgment, no retries.
type Validator struct {
	provider llm.Provider
}

// NewValidator creates a validator over the given provider.
func NewValidator(provider llm.Provider) *Validator {
	return &Validator{provider: provider}
}

const validatorSystemPrompt = `You judge whether a browser automation task is complete.

You receive the task, the interactive elements currently on the page, and the
history of actions already taken. Respond with a single JSON object:

{"isComplete": bool, "reasoning": "...", "confidence": "high|medium|low", "suggestions": ["...", ...]}

Set isComplete true only when the evidence shows the task's goal was reached.
When incomplete, suggestions must be concrete next steps, not restatements of
the task.`

// Validate runs one completion judgment. A failed LLM call surfaces as an
// error; the caller decides how the loop reacts.
func (v *Validator) Validate(ctx context.Context, task string, state *browser.State, history []string) (*Validation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\n", task)
	if state != nil {
		fmt.Fprintf(&sb, "Current page: %s (%s)\n", state.Title, state.URL)
		if !state.IsEmpty() {
			fmt.Fprintf(&sb, "Clickable elements:\n%s\n", state.ClickableElementsString)
			fmt.Fprintf(&sb, "Typeable elements:\n%s\n", state.TypeableElementsString)
		}
	}
	sb.WriteString("\nAction history:\n")
	for _, entry := range history {
		fmt.Fprintf(&sb, "- %s\n", entry)
	}

	messages := []*types.Message{
		types.NewSystemMessage(validatorSystemPrompt),
		types.NewUserMessage(sb.String()),
	}

	var verdict Validation
	if err := llm.CompleteJSON(ctx, v.provider, messages, &verdict); err != nil {
		return nil, fmt.Errorf("validation call failed: %w", err)
	}
	return &verdict, nil
}
