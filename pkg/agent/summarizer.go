package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nxtscape/webpilot/pkg/bus"
	"github.com/nxtscape/webpilot/pkg/llm"
	"github.com/nxtscape/webpilot/pkg/types"
)

// Summary is the final outcome reported to the user.
type Summary struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Summarizer produces the closing natural-language summary of a run. The
// summary streams to observers as it is generated: every delta republishes
// the accumulated text under one message id, so renderers update a single
// message in place instead of appending fragments.
type Summarizer struct {
	provider llm.Provider
	events   *bus.Bus
}

// NewSummarizer creates a summarizer that streams over the given bus.
func NewSummarizer(provider llm.Provider, events *bus.Bus) *Summarizer {
	return &Summarizer{provider: provider, events: events}
}

const summarizerSystemPrompt = `You summarize the outcome of a completed browser automation task for the user.

Write 2-4 plain sentences: what was accomplished and any result worth
reporting (extracted data, confirmation text). No preamble, no markdown
headings.`

// Summarize streams the summary into one upserted bus message and returns
// the full text. A stream failure surfaces as an error; partial text already
// published stays visible.
func (s *Summarizer) Summarize(ctx context.Context, task string, history []string) (*Summary, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Task: %s\n\nActions taken:\n", task)
	for _, entry := range history {
		fmt.Fprintf(&prompt, "- %s\n", entry)
	}

	messages := []*types.Message{
		types.NewSystemMessage(summarizerSystemPrompt),
		types.NewUserMessage(prompt.String()),
	}

	stream, err := s.provider.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("summary call failed: %w", err)
	}

	msgID := s.events.GenerateID("summary")
	var full strings.Builder
	for chunk := range stream {
		if chunk.IsError() {
			return nil, fmt.Errorf("summary stream failed: %w", chunk.Error)
		}
		if chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		s.events.PublishMessage(msgID, full.String(), types.RoleAssistant)
	}

	return &Summary{Success: true, Message: full.String()}, nil
}
