package export

import (
	"io"

	"github.com/iksnae/pagechat/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes a Document with snake_case keys. Multi-line replies
// come out as literal blocks, which keeps code answers readable.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(conv)); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (e *YAMLExporter) Extension() string {
	return "yaml"
}
