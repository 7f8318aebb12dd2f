// Package types defines the shared value types exchanged between webpilot
// components: the event union streamed over the bus, todo items tracked by
// the sub-agent loop, and the message shapes sent to LLM providers.
package types

// EventType discriminates the variants of the event union published on the bus.
type EventType string

const (
	EventTypeMessage         EventType = "message"          // EventTypeMessage carries UI-visible chat content.
	EventTypeExecutionStatus EventType = "execution-status" // EventTypeExecutionStatus reports run lifecycle changes.
)

// MessageRole identifies who (or what) a message is attributed to.
type MessageRole string

const (
	RoleThinking  MessageRole = "thinking"  // RoleThinking is internal reasoning surfaced to the UI.
	RoleUser      MessageRole = "user"      // RoleUser is content authored by the user.
	RoleAssistant MessageRole = "assistant" // RoleAssistant is content authored by the agent.
	RoleError     MessageRole = "error"     // RoleError is a failure narrated to the user.
	RoleNarration MessageRole = "narration" // RoleNarration is live progress commentary.
)

// ExecStatus is the coarse lifecycle state of a run.
type ExecStatus string

const (
	StatusRunning   ExecStatus = "running"
	StatusDone      ExecStatus = "done"
	StatusCancelled ExecStatus = "cancelled"
	StatusError     ExecStatus = "error"
)

// MessageEvent is the payload of a message-variant event. Re-publishing a
// message with a MsgID seen before is an upsert: consumers replace the prior
// content instead of appending, which is how long-running narration is
// live-edited.
type MessageEvent struct {
	// MsgID is the stable key consumers dedupe on.
	MsgID string

	// Content is the markdown message body.
	Content string

	// Role attributes the message.
	Role MessageRole
}

// ExecutionStatusEvent is the payload of an execution-status-variant event.
type ExecutionStatusEvent struct {
	// Status is the run lifecycle state being announced.
	Status ExecStatus

	// Message optionally elaborates on the status (error reasoning, etc.).
	Message string
}

// Event is the tagged union streamed to observers. Exactly one of Message and
// ExecutionStatus is non-nil, matching Type. Events are immutable once
// published; Ts is assigned by the bus and is monotonic per publisher.
type Event struct {
	// Type indicates which variant this event is.
	Type EventType

	// Ts is the publication timestamp in epoch milliseconds.
	Ts int64

	// Message is set when Type is EventTypeMessage.
	Message *MessageEvent

	// ExecutionStatus is set when Type is EventTypeExecutionStatus.
	ExecutionStatus *ExecutionStatusEvent
}

// NewMessageEvent creates a message event.
func NewMessageEvent(msgID, content string, role MessageRole) *Event {
	return &Event{
		Type: EventTypeMessage,
		Message: &MessageEvent{
			MsgID:   msgID,
			Content: content,
			Role:    role,
		},
	}
}

// NewExecutionStatusEvent creates an execution-status event.
func NewExecutionStatusEvent(status ExecStatus, message string) *Event {
	return &Event{
		Type: EventTypeExecutionStatus,
		ExecutionStatus: &ExecutionStatusEvent{
			Status:  status,
			Message: message,
		},
	}
}

// IsMessage returns true if this is a message-variant event.
func (e *Event) IsMessage() bool {
	return e.Type == EventTypeMessage && e.Message != nil
}

// IsExecutionStatus returns true if this is an execution-status-variant event.
func (e *Event) IsExecutionStatus() bool {
	return e.Type == EventTypeExecutionStatus && e.ExecutionStatus != nil
}

// IsTerminal returns true if this event ends a run (done, cancelled, error).
func (e *Event) IsTerminal() bool {
	if !e.IsExecutionStatus() {
		return false
	}
	switch e.ExecutionStatus.Status {
	case StatusDone, StatusCancelled, StatusError:
		return true
	}
	return false
}
