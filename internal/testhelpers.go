package internal

import (
	"time"
)

// CreateTestConversation creates a conversation with one question and answer
func CreateTestConversation(id string) *Conversation {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Conversation{
		ID: id,
		Messages: []Message{
			{Role: RoleUser, Content: "Hello, how are you?"},
			{Role: RoleAssistant, Content: "I'm doing well, thank you!"},
		},
		Stats:     TokenStats{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

// CreateTestConversationWithMessages creates a conversation with custom messages
func CreateTestConversationWithMessages(id string, messages []Message) *Conversation {
	conv := CreateTestConversation(id)
	conv.Messages = messages
	conv.Stats = TokenStats{}
	return conv
}

// SSEData formats payloads as "data: " lines of an event stream
func SSEData(payloads ...string) string {
	var out string
	for _, p := range payloads {
		out += "data: " + p + "\n\n"
	}
	return out
}

// DeltaPayload returns a chat completion chunk carrying content
func DeltaPayload(content string) string {
	return `{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":` + quoteJSON(content) + `}}]}`
}

func quoteJSON(s string) string {
	out := []byte{'"'}
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, string(r)...)
		}
	}
	return string(append(out, '"'))
}
