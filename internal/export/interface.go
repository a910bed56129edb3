package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/pagechat/internal"
)

// Exporter writes a stored conversation to a file format. Extension is the
// file suffix used by `history export`.
type Exporter interface {
	Export(conv *internal.Conversation, w io.Writer) error
	Extension() string
}

// Formats lists the accepted --format values
var Formats = []string{"jsonl", "md", "yaml", "json"}

// NewExporter returns the exporter for format; "markdown" and "yml" are aliases
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// Document is the shape of a JSON or YAML export: the same header the
// markdown export prints, followed by the messages as they were replayed.
type Document struct {
	ID           string              `json:"id" yaml:"id"`
	StartedAt    time.Time           `json:"startedAt" yaml:"started_at"`
	UpdatedAt    time.Time           `json:"updatedAt" yaml:"updated_at"`
	MessageCount int                 `json:"messageCount" yaml:"message_count"`
	Usage        internal.TokenStats `json:"usage" yaml:"usage"`
	Messages     []internal.Message  `json:"messages" yaml:"messages"`
}

// NewDocument builds the export document for conv. Messages is never nil.
func NewDocument(conv *internal.Conversation) Document {
	messages := conv.Messages
	if messages == nil {
		messages = []internal.Message{}
	}
	return Document{
		ID:           conv.ID,
		StartedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: len(messages),
		Usage:        conv.Stats,
		Messages:     messages,
	}
}
