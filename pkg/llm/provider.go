// Package llm provides abstractions for LLM provider integration.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. This keeps providers focused on transport concerns
// without coupling them to agent-level events or orchestration: the agent
// layer converts chunks into bus events and owns conversation state.
package llm

import (
	"context"

	"github.com/nxtscape/webpilot/pkg/types"
)

// Provider defines the interface for LLM integrations.
type Provider interface {
	// StreamCompletion sends messages to the LLM and streams back response
	// chunks. The channel is closed when streaming completes or an error
	// occurs; stream-time errors are delivered as chunks with Error set.
	// Returns an error only if streaming cannot be initiated.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the LLM and returns the full response.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}

// StreamChunk is one delta of a streamed completion.
type StreamChunk struct {
	// Content is the text delta.
	Content string

	// Role is set on the first chunk of a response (e.g. "assistant").
	Role string

	// Finished is true on the final chunk of the stream.
	Finished bool

	// Error is set when the stream failed mid-flight.
	Error error
}

// IsError returns true if this chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}
