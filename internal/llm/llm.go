// Package llm defines the chat-completion contract used by the orchestrator
// and its Groq implementation.
package llm

import "context"

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt.
type Message struct {
	Role    Role
	Content string
}

// Tool describes a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function invocation emitted by the model. Arguments is the raw JSON payload.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Completion is the model's reply: free text, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel sends a prompt with optional tools and returns the first choice.
// Tool choice is left to the model.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (*Completion, error)
}
