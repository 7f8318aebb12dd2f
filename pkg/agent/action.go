package agent

import (
	"context"
	"fmt"

	"github.com/nxtscape/webpilot/pkg/a11y"
)

// maxExtractLength caps extracted page text so observations stay within
// prompt budgets downstream.
const maxExtractLength = 8000

// action is the structured tool choice the model emits for one todo.
type action struct {
	// Kind selects the tool: navigate, click, type, extract_text,
	// extract_content, get_instances, list_tools, call_tool, note.
	Kind string `json:"action"`

	// URL is the navigation target for navigate.
	URL string `json:"url,omitempty"`

	// Element is the natural-language element description for click/type,
	// resolved through grounding before any interaction.
	Element string `json:"element,omitempty"`

	// Text is the input for type.
	Text string `json:"text,omitempty"`

	// Target selects the extraction focus for extract_content.
	Target string `json:"target,omitempty"`

	// InstanceID and ToolName address an external tool for list_tools and
	// call_tool; Args are the tool arguments.
	InstanceID string                 `json:"instanceId,omitempty"`
	ToolName   string                 `json:"toolName,omitempty"`
	Args       map[string]interface{} `json:"args,omitempty"`

	// Reasoning explains the choice; surfaced as narration.
	Reasoning string `json:"reasoning"`
}

// dispatch executes one action and returns a short observation for the
// history. Element indices are always resolved fresh through the grounder;
// nothing here reuses an index across actions.
func (s *SubAgent) dispatch(ctx context.Context, act *action, intent string) (string, error) {
	switch act.Kind {
	case "navigate":
		if act.URL == "" {
			return "", fmt.Errorf("navigate requires a url")
		}
		if err := s.driver.Navigate(ctx, act.URL); err != nil {
			return "", fmt.Errorf("navigation to %s failed: %w", act.URL, err)
		}
		return fmt.Sprintf("navigated to %s", act.URL), nil

	case "click":
		result, err := s.grounder.FindElement(ctx, act.Element, intent)
		if err != nil {
			return "", err
		}
		if !result.Success {
			return "", fmt.Errorf("could not locate %q: %s", act.Element, result.Message)
		}
		if err := s.driver.Click(ctx, result.Index); err != nil {
			return "", fmt.Errorf("click on element %d failed: %w", result.Index, err)
		}
		return fmt.Sprintf("clicked %q (element %d)", act.Element, result.Index), nil

	case "type":
		result, err := s.grounder.FindElement(ctx, act.Element, intent)
		if err != nil {
			return "", err
		}
		if !result.Success {
			return "", fmt.Errorf("could not locate %q: %s", act.Element, result.Message)
		}
		if err := s.driver.Type(ctx, result.Index, act.Text); err != nil {
			return "", fmt.Errorf("typing into element %d failed: %w", result.Index, err)
		}
		return fmt.Sprintf("typed %q into %q (element %d)", act.Text, act.Element, result.Index), nil

	case "extract_text":
		text, err := s.driver.ExtractText(ctx, maxExtractLength)
		if err != nil {
			return "", fmt.Errorf("text extraction failed: %w", err)
		}
		return fmt.Sprintf("extracted page text:\n%s", text), nil

	case "extract_content":
		tree, err := s.driver.GetAccessibilityTree(ctx)
		if err != nil {
			return "", fmt.Errorf("accessibility tree fetch failed: %w", err)
		}
		target := a11y.Target(act.Target)
		if target == "" {
			target = a11y.TargetMainContent
		}
		content := a11y.Extract(tree, a11y.DefaultOptions(target))
		return fmt.Sprintf("extracted %s content:\n%s", target, content.ToStructuredText()), nil

	case "get_instances":
		if s.mcpTool == nil {
			return "", fmt.Errorf("external tools are not configured")
		}
		instances, err := s.mcpTool.GetUserInstances(ctx)
		if err != nil {
			return "", fmt.Errorf("listing tool instances failed: %w", err)
		}
		if len(instances) == 0 {
			return "no external tool servers installed", nil
		}
		obs := "installed tool servers:"
		for _, inst := range instances {
			obs += fmt.Sprintf("\n- %s (id %s)", inst.Name, inst.ID)
		}
		return obs, nil

	case "list_tools":
		if s.mcpTool == nil {
			return "", fmt.Errorf("external tools are not configured")
		}
		result := s.mcpTool.ListTools(ctx, act.InstanceID)
		if !result.Success {
			return "", fmt.Errorf("listing tools failed: %s", result.Error)
		}
		return fmt.Sprintf("tools on instance %s: %v", act.InstanceID, result.Data), nil

	case "call_tool":
		if s.mcpTool == nil {
			return "", fmt.Errorf("external tools are not configured")
		}
		result := s.mcpTool.CallTool(ctx, act.InstanceID, act.ToolName, act.Args)
		if !result.Success {
			return "", fmt.Errorf("tool %s failed: %s", act.ToolName, result.Error)
		}
		return fmt.Sprintf("tool %s returned: %v", act.ToolName, result.Data), nil

	case "note":
		return act.Reasoning, nil
	}

	return "", fmt.Errorf("unknown action %q", act.Kind)
}
