package models

// Role identifies the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's conversation history.
// The JSON shape {role, content} is what the session store persists.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LastTurns returns at most n of the most recent turns, preserving order.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
