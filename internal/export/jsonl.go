package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/pagechat/internal"
)

// JSONLExporter exports one message per line, in the request message shape
type JSONLExporter struct{}

// Export writes each message as {"role","content"}
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range conv.Messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("failed to encode message %d: %w", i, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
