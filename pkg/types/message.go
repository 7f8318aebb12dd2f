package types

// ChatRole is the role field of a message sent to an LLM provider.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Message is a single turn in an LLM conversation.
type Message struct {
	// Role identifies the author of the message.
	Role ChatRole

	// Content is the text body of the message.
	Content string

	// ImageB64 optionally attaches a base64-encoded PNG alongside the text
	// for vision-capable models (e.g. a page screenshot used for spatial
	// disambiguation during grounding).
	ImageB64 string
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: ChatRoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: ChatRoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: ChatRoleAssistant, Content: content}
}

// WithImage attaches a base64 PNG to the message and returns it for chaining.
func (m *Message) WithImage(b64 string) *Message {
	m.ImageB64 = b64
	return m
}

// ModelInfo describes an LLM provider's model capabilities.
type ModelInfo struct {
	// Name is the model identifier (e.g. "gpt-4o").
	Name string

	// Provider is the provider family (e.g. "openai").
	Provider string

	// MaxTokens is the model's context window size.
	MaxTokens int

	// SupportsStreaming indicates whether StreamCompletion is available.
	SupportsStreaming bool

	// SupportsVision indicates whether image attachments are accepted.
	SupportsVision bool

	// Metadata holds provider-specific extras (base URL overrides, etc.).
	Metadata map[string]interface{}
}
