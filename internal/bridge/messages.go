package bridge

import (
	"github.com/iksnae/pagechat/internal"
)

// Actions exchanged with the browser panel
const (
	ActionStreamLLM      = "streamLLM"
	ActionStopStream     = "stopStream"
	ActionStreamChunk    = "streamChunk"
	ActionStreamComplete = "streamComplete"
	ActionStreamError    = "streamError"
)

// Request is a message sent by the panel
type Request struct {
	Action   string             `json:"action"`
	URL      string             `json:"url,omitempty"`
	Model    string             `json:"model,omitempty"`
	APIKey   string             `json:"apiKey,omitempty"`
	Messages []internal.Message `json:"messages,omitempty"`
}

// Reply is a message relayed to the panel
type Reply struct {
	Action       string               `json:"action"`
	Chunk        string               `json:"chunk,omitempty"`
	FullResponse *string              `json:"fullResponse,omitempty"`
	Usage        *internal.TokenStats `json:"usage,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// endpoint resolves the endpoint for a request. A request naming its own URL
// is sent with its own key only; the configured key goes to the configured URL.
func (r Request) endpoint(defaults internal.EndpointConfig) internal.EndpointConfig {
	cfg := defaults
	if r.URL != "" {
		cfg.BaseURL = r.URL
		cfg.APIKey = r.APIKey
	} else if r.APIKey != "" {
		cfg.APIKey = r.APIKey
	}
	if r.Model != "" {
		cfg.ModelName = r.Model
	}
	return cfg
}

func replyFor(ev internal.Event) Reply {
	switch ev.Type {
	case internal.EventChunk:
		return Reply{Action: ActionStreamChunk, Chunk: ev.Text}
	case internal.EventComplete:
		full := ev.FullResponse
		stats := ev.Stats
		return Reply{Action: ActionStreamComplete, FullResponse: &full, Usage: &stats}
	default:
		return Reply{Action: ActionStreamError, Error: ev.Err}
	}
}
