package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/pagechat/internal"
)

// JSONExporter writes one indented Document per conversation
type JSONExporter struct{}

func (e *JSONExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewDocument(conv))
}

func (e *JSONExporter) Extension() string {
	return "json"
}
