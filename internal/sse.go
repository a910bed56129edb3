package internal

import (
	"encoding/json"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// DecodeState is the state of an SSE decode loop
type DecodeState int

const (
	StateReading DecodeState = iota
	StateDone
	StateCancelled
)

func (s DecodeState) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// usagePayload accepts both snake_case and camelCase field names
type usagePayload struct {
	PromptTokens          *int `json:"prompt_tokens"`
	CompletionTokens      *int `json:"completion_tokens"`
	TotalTokens           *int `json:"total_tokens"`
	PromptTokensCamel     *int `json:"promptTokens"`
	CompletionTokensCamel *int `json:"completionTokens"`
	TotalTokensCamel      *int `json:"totalTokens"`
}

func (u *usagePayload) stats() TokenStats {
	prompt := firstInt(u.PromptTokens, u.PromptTokensCamel)
	completion := firstInt(u.CompletionTokens, u.CompletionTokensCamel)
	stats := TokenStats{PromptTokens: prompt, CompletionTokens: completion}
	if total := firstPresent(u.TotalTokens, u.TotalTokensCamel); total != nil {
		stats.TotalTokens = *total
	} else {
		stats.TotalTokens = prompt + completion
	}
	return stats
}

func firstPresent(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(values ...*int) int {
	if v := firstPresent(values...); v != nil {
		return *v
	}
	return 0
}

// chunkPayload keeps choices and usage raw so a malformed usage object
// cannot cost the line its content, nor the other way round
type chunkPayload struct {
	Choices json.RawMessage `json:"choices"`
	Usage   json.RawMessage `json:"usage"`
}

type choicePayload struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// SSEDecoder turns the byte blocks of a chat completions stream into
// chunk and complete events. It is not safe for concurrent use.
type SSEDecoder struct {
	sessionID string
	text      *UTF8StreamDecoder
	lineBuf   string
	response  strings.Builder
	stats     TokenStats
	state     DecodeState
}

// NewSSEDecoder creates a decoder whose events carry sessionID
func NewSSEDecoder(sessionID string) *SSEDecoder {
	return &SSEDecoder{
		sessionID: sessionID,
		text:      NewUTF8StreamDecoder(),
	}
}

// State returns the current decode state
func (d *SSEDecoder) State() DecodeState {
	return d.state
}

// Response returns the text accumulated so far
func (d *SSEDecoder) Response() string {
	return d.response.String()
}

// Stats returns the token usage seen so far
func (d *SSEDecoder) Stats() TokenStats {
	return d.stats
}

// Feed consumes one block of bytes and returns the events it produced.
// A [DONE] sentinel yields the complete event and discards everything after it.
func (d *SSEDecoder) Feed(p []byte) []Event {
	if d.state != StateReading {
		return nil
	}

	d.lineBuf += d.text.Decode(p, false)
	lines := strings.Split(d.lineBuf, "\n")
	d.lineBuf = lines[len(lines)-1]

	var events []Event
	for _, line := range lines[:len(lines)-1] {
		ev, done := d.processLine(line)
		if ev != nil {
			events = append(events, *ev)
		}
		if done {
			events = append(events, d.finish())
			return events
		}
	}
	return events
}

// Close finalizes the stream at end of input
func (d *SSEDecoder) Close() []Event {
	if d.state != StateReading {
		return nil
	}
	if rest := d.lineBuf + d.text.Decode(nil, true); strings.TrimSpace(rest) != "" {
		LogDebug("discarding unterminated trailing line: %q", rest)
	}
	return []Event{d.finish()}
}

// Cancel moves the decoder to the cancelled state; no further events are produced
func (d *SSEDecoder) Cancel() {
	if d.state == StateReading {
		d.state = StateCancelled
	}
}

func (d *SSEDecoder) finish() Event {
	d.state = StateDone
	d.lineBuf = ""
	return Event{
		SessionID:    d.sessionID,
		Type:         EventComplete,
		FullResponse: d.response.String(),
		Stats:        d.stats,
	}
}

func (d *SSEDecoder) processLine(line string) (*Event, bool) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return nil, false
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false
	}

	data := line[len(dataPrefix):]
	if data == doneSentinel {
		return nil, true
	}

	var payload chunkPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		LogWarn("skipping SSE data line: %v", &DecodeError{Line: data, Err: err})
		return nil, false
	}

	if present(payload.Usage) {
		var usage usagePayload
		if err := json.Unmarshal(payload.Usage, &usage); err != nil {
			LogWarn("skipping usage: %v", &DecodeError{Line: string(payload.Usage), Err: err})
		} else {
			d.stats = usage.stats()
		}
	}

	if !present(payload.Choices) {
		return nil, false
	}
	var choices []choicePayload
	if err := json.Unmarshal(payload.Choices, &choices); err != nil {
		LogWarn("skipping choices: %v", &DecodeError{Line: string(payload.Choices), Err: err})
		return nil, false
	}
	if len(choices) > 0 {
		if content := choices[0].Delta.Content; content != "" {
			d.response.WriteString(content)
			return &Event{SessionID: d.sessionID, Type: EventChunk, Text: content}, false
		}
	}
	return nil, false
}
