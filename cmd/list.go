package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// historyCmd groups the commands working on stored conversations
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show, export or clear stored conversations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		summaries, err := storage.List(cmd.Context())
		if err != nil {
			return err
		}
		displayConversations(cmd.OutOrStdout(), summaries, time.Now())
		return nil
	},
}

func displayConversations(out io.Writer, summaries []internal.ConversationSummary, now time.Time) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, headerStyle.Render("No conversations found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d conversation(s)", len(summaries))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Tokens")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("First question")+"\t")

	for _, sum := range summaries {
		preview := strings.Join(strings.Fields(sum.Preview), " ")
		if len(preview) > 50 {
			preview = preview[:47] + "..."
		}
		if preview == "" {
			preview = "—"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(sum.ID),
			countStyle.Render(strconv.Itoa(sum.MessageCount)),
			strconv.Itoa(sum.TotalTokens),
			dateStyle.Render(formatWhen(sum.UpdatedAt, now)),
			preview)
	}
	_ = w.Flush()
}

// formatWhen renders t relative to now, coarser the older it is
func formatWhen(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
}
