package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var historyShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Show a stored conversation",
	Long:  `Display a stored conversation. Without an id the most recent one is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		conv, err := loadConversation(cmd, storage, args)
		if err != nil {
			return err
		}
		displayConversation(cmd.OutOrStdout(), conv, limit)
		return nil
	},
}

// loadConversation returns the conversation named by args[0], or the latest one
func loadConversation(cmd *cobra.Command, storage *internal.Storage, args []string) (*internal.Conversation, error) {
	var (
		conv *internal.Conversation
		err  error
	)
	if len(args) == 1 {
		conv, err = storage.Load(cmd.Context(), args[0])
		if err == nil && conv == nil {
			return nil, fmt.Errorf("conversation not found: %s (use 'pagechat history list' to see stored conversations)", args[0])
		}
	} else {
		conv, err = storage.Latest(cmd.Context())
		if err == nil && conv == nil {
			return nil, fmt.Errorf("no conversations stored yet")
		}
	}
	return conv, err
}

func displayConversation(out io.Writer, conv *internal.Conversation, limit int) {
	fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("Conversation %s", conv.ID)))

	var metaParts []string
	if !conv.CreatedAt.IsZero() {
		metaParts = append(metaParts, fmt.Sprintf("Started: %s", conv.CreatedAt.Format(time.RFC1123)))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(conv.Messages)))
	if conv.Stats.TotalTokens > 0 {
		metaParts = append(metaParts, fmt.Sprintf("Tokens: %d", conv.Stats.TotalTokens))
	}
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)

	messages := conv.Messages
	start := 0
	if limit > 0 && len(messages) > limit {
		start = len(messages) - limit
	}
	for i := start; i < len(messages); i++ {
		displayMessage(out, i+1, messages[i], len(messages))
	}
}

func displayMessage(out io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "User"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "Assistant"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = string(msg.Role)
	}

	fmt.Fprintln(out, actorStyle.Render(actorLabel)+" "+timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total)))

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	fmt.Fprintln(out)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			switch {
			case currentLine == "":
				currentLine = word
			case len(currentLine)+len(word)+1 > width:
				wrapped = append(wrapped, currentLine)
				currentLine = word
			default:
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyShowCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last n messages")
}
