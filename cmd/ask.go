package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var (
	askPage   string
	askNoSave bool
)

// askCmd sends a single question and streams the reply
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and stream the reply",
	Long: `Ask a single question and stream the reply to stdout.

With --page the question is answered from a web page (URL) or a local HTML
file. Ctrl-C stops the reply and keeps what was received so far.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return errors.New("question is empty")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client := newHTTPClient()
		page, err := loadPage(ctx, client, askPage)
		if err != nil {
			return err
		}

		var store internal.HistoryStore
		if !askNoSave {
			storage, db, err := openHistory()
			if err != nil {
				internal.LogWarn("history disabled: %v", err)
			} else {
				defer db.Close()
				store = storage
			}
		}

		view := internal.NewTerminalView(cmd.OutOrStdout())
		panel := internal.NewPanel(internal.NewCoordinator(client), view, store, settings.Endpoint(), nil)
		panel.SendMessage(context.Background(), question, page)

		if err := panel.Wait(ctx); err != nil {
			panel.Stop()
			internal.LogInfo("stopped")
			return nil
		}

		history := panel.History()
		if len(history) == 0 || history[len(history)-1].Role != internal.RoleAssistant {
			return errors.New("no reply received")
		}
		return nil
	},
}

// loadPage resolves a --page or /page argument: http(s) URLs are fetched,
// anything else is read as a local HTML file. An empty ref yields no page.
func loadPage(ctx context.Context, client *http.Client, ref string) (*internal.PageContext, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}

	var page *internal.PageContext
	err := internal.ShowProgress(ctx, fmt.Sprintf("Loading %s", ref), func() error {
		var err error
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			page, err = internal.FetchPage(ctx, client, ref)
		} else {
			page, err = internal.PageFromFile(ref)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	internal.LogDebug("page %q: %d bytes of markdown", page.Title, len(page.Markdown))
	return page, nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askPage, "page", "p", "", "Answer from this page (URL or local HTML file)")
	askCmd.Flags().BoolVar(&askNoSave, "no-save", false, "Do not store the conversation in history")
}
