package agent

import (
	"fmt"
	"strings"

	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/types"
)

const plannerSystemPrompt = `You plan browser automation tasks.

Break the task into 3-5 concrete, ordered steps. Each step is one atomic
action an automation agent can take: navigate somewhere, interact with one
element, extract one piece of content, or call one external tool. Do not
plan verification steps; completion is checked separately.

Respond with a single JSON object:

{"steps": ["...", "..."]}`

const actionSystemPrompt = `You execute one step of a browser automation plan by choosing a tool.

Tools:
- navigate: open a URL. Fields: url.
- click: click one element, described in natural language. Fields: element.
- type: type text into one element. Fields: element, text.
- extract_text: read the visible page text.
- extract_content: read structured page content. Fields: target, one of
  products, forms, navigation, main_content, semantic.
- get_instances: list the installed external tool servers.
- list_tools: list the tools of one server. Fields: instanceId.
- call_tool: invoke an external tool. Fields: instanceId, toolName, args.
  Call get_instances first if you do not know the instanceId.
- note: record an observation without acting.

Describe elements by what a user sees ("the search box", "Add to cart button
for the first result"), never by index or selector.

Respond with a single JSON object:

{"action": "...", "reasoning": "...", ...fields for the chosen tool}`

// plan is the structured output requested from the planner.
type plan struct {
	Steps []string `json:"steps"`
}

func buildPlanPrompt(task string, state *browser.State, suggestions []string) []*types.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n", task)
	if state != nil && state.URL != "" {
		fmt.Fprintf(&sb, "\nCurrent page: %s (%s)\n", state.Title, state.URL)
	}
	if len(suggestions) > 0 {
		sb.WriteString("\nA previous attempt was judged incomplete. Address these points:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	return []*types.Message{
		types.NewSystemMessage(plannerSystemPrompt),
		types.NewUserMessage(sb.String()),
	}
}

func buildActionPrompt(task string, todo types.Todo, state *browser.State, history []string) []*types.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\nCurrent step: %s\n", task, todo.Content)
	if state != nil {
		fmt.Fprintf(&sb, "\nCurrent page: %s (%s)\n", state.Title, state.URL)
		if !state.IsEmpty() {
			fmt.Fprintf(&sb, "Clickable elements:\n%s\n", state.ClickableElementsString)
			fmt.Fprintf(&sb, "Typeable elements:\n%s\n", state.TypeableElementsString)
		}
	}
	if len(history) > 0 {
		sb.WriteString("\nActions so far:\n")
		for _, entry := range history {
			fmt.Fprintf(&sb, "- %s\n", entry)
		}
	}
	return []*types.Message{
		types.NewSystemMessage(actionSystemPrompt),
		types.NewUserMessage(sb.String()),
	}
}
