package internal

import "time"

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message as replayed to the endpoint
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// EndpointConfig describes the OpenAI-compatible endpoint to talk to.
// An empty APIKey means no Authorization header is sent.
type EndpointConfig struct {
	BaseURL   string `json:"baseUrl" yaml:"base_url"`
	ModelName string `json:"modelName" yaml:"model_name"`
	APIKey    string `json:"apiKey,omitempty" yaml:"api_key,omitempty"`
}

// TokenStats holds the token usage reported by the endpoint
type TokenStats struct {
	PromptTokens     int `json:"promptTokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completionTokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"totalTokens" yaml:"total_tokens"`
}

// EventType tags a relayed stream event
type EventType string

const (
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is relayed from the coordinator to the panel.
// Text is set for chunks, FullResponse and Stats for complete, Err for errors.
type Event struct {
	SessionID    string
	Type         EventType
	Text         string
	FullResponse string
	Stats        TokenStats
	Err          string
}

// IsTerminal reports whether the event ends its session
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Conversation is the persisted form of the chat history
type Conversation struct {
	ID        string     `json:"id" yaml:"id"`
	Messages  []Message  `json:"messages" yaml:"messages"`
	Stats     TokenStats `json:"stats" yaml:"stats"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

// RequestMessages returns the messages that are replayed to the endpoint.
// Only user and assistant turns are sent; order is kept.
func RequestMessages(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == RoleUser || msg.Role == RoleAssistant {
			out = append(out, Message{Role: msg.Role, Content: msg.Content})
		}
	}
	return out
}
