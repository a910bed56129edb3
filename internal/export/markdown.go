package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/pagechat/internal"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# Conversation %s\n\n", conv.ID)

	if !conv.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Started:** %s  \n", conv.CreatedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))

	if conv.Stats.TotalTokens > 0 {
		_, _ = fmt.Fprintf(w, "**Tokens:** %d prompt, %d completion, %d total\n\n",
			conv.Stats.PromptTokens, conv.Stats.CompletionTokens, conv.Stats.TotalTokens)
	}

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range conv.Messages {
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", msg.Role, escapeMarkdown(msg.Content))

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes bold/underline markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inCodeBlock = !inCodeBlock
		case !inCodeBlock:
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
		}
	}

	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
