// Package grounding resolves natural-language element descriptions to
// concrete page elements. An LLM proposes a candidate index, but the result
// is always cross-checked against the ground-truth candidate set captured
// from the live page: an index the page does not know is a failure no matter
// what the model claims.
package grounding

import (
	"context"
	"fmt"

	"github.com/nxtscape/webpilot/pkg/browser"
	"github.com/nxtscape/webpilot/pkg/llm"
)

// Confidence is the model's self-reported certainty about a match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ElementInfo describes the validated element, sourced from the candidate
// set rather than from the model's description of it.
type ElementInfo struct {
	TagName    string            `json:"tagName"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Result is the outcome of one grounding attempt. A description matching
// zero candidates is a normal unsuccessful result, not an error.
type Result struct {
	Success     bool         `json:"success"`
	Index       int          `json:"index,omitempty"`
	Confidence  Confidence   `json:"confidence,omitempty"`
	ElementInfo *ElementInfo `json:"elementInfo,omitempty"`
	Message     string       `json:"message"`
}

// llmVerdict is the structured output requested from the model.
type llmVerdict struct {
	Found      bool       `json:"found"`
	Index      *int       `json:"index,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
	Reasoning  string     `json:"reasoning"`
}

// Grounder resolves element descriptions against the current page.
type Grounder struct {
	driver   browser.Driver
	provider llm.Provider
}

// New creates a grounder over the given page driver and LLM provider. The
// provider should be configured with a low temperature.
func New(driver browser.Driver, provider llm.Provider) *Grounder {
	return &Grounder{driver: driver, provider: provider}
}

// FindElement resolves a free-text element description (plus optional
// intent) to exactly one element of the current page, or reports not found.
//
// An LLM transport failure propagates as a hard error with the underlying
// message attached; everything else is a non-exceptional Result.
func (g *Grounder) FindElement(ctx context.Context, description, intent string) (*Result, error) {
	state, err := g.driver.GetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page state: %w", err)
	}

	// Fail fast before spending an LLM call.
	if state.IsEmpty() {
		return &Result{Success: false, Message: "no elements on page"}, nil
	}

	messages := buildPrompt(state, description, intent)

	var verdict llmVerdict
	if err := llm.CompleteJSON(ctx, g.provider, messages, &verdict); err != nil {
		return nil, fmt.Errorf("grounding LLM call failed: %w", err)
	}

	// Validation gate: never trust a model-emitted identifier without
	// cross-checking it against ground truth.
	if !verdict.Found || verdict.Index == nil {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("not found: %s", verdict.Reasoning),
		}, nil
	}

	element, ok := state.FindByIndex(*verdict.Index)
	if !ok {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("invalid index %d: not in candidate set", *verdict.Index),
		}, nil
	}

	return &Result{
		Success:    true,
		Index:      element.Index,
		Confidence: verdict.Confidence,
		ElementInfo: &ElementInfo{
			TagName:    element.Tag,
			Text:       element.Text,
			Attributes: element.Attributes,
		},
		Message: fmt.Sprintf("matched element %d (%s)", element.Index, element.Tag),
	}, nil
}
