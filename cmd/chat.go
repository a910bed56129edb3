package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	chatResume bool
	chatPage   string
)

const chatHelp = `Commands:
  /retry          resend the last question
  /stop           stop the reply (an empty line does the same)
  /clear          forget the conversation
  /page <ref>     attach a page (URL or HTML file); "/page off" detaches it
  /exit           quit`

var errChatExit = errors.New("exit")

// chatCmd runs the interactive chat loop
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the configured endpoint.

Replies stream in while you can keep typing; an empty line or /stop ends the
current reply and keeps the text received so far.

` + chatHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client := newHTTPClient()
		storage, db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		var conv *internal.Conversation
		if chatResume {
			conv, err = storage.Latest(ctx)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		panel := internal.NewPanel(internal.NewCoordinator(client), internal.NewTerminalView(out), storage, settings.Endpoint(), conv)
		if conv != nil {
			internal.PrintInfo(out, fmt.Sprintf("Resuming conversation %s", conv.ID))
			panel.Render()
		}

		page, err := loadPage(ctx, client, chatPage)
		if err != nil {
			return err
		}

		session := &chatSession{
			panel:  panel,
			client: client,
			out:    out,
			page:   page,
		}
		fmt.Fprintln(out, "Type /help for commands.")
		return session.run(ctx, cmd.InOrStdin())
	},
}

type chatSession struct {
	panel  *internal.Panel
	client *http.Client
	out    io.Writer
	page   *internal.PageContext
}

// run reads input lines and dispatches them until /exit, EOF or ctx is done.
// Reading runs in its own goroutine so a reply can be stopped while it streams.
func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)
	lines := make(chan string)

	g.Go(func() error {
		return readLines(ctx, in, lines)
	})

	g.Go(func() error {
		defer s.panel.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// input closed; let the last reply finish
					return s.panel.Wait(ctx)
				}
				if err := s.handleLine(ctx, line); err != nil {
					if errors.Is(err, errChatExit) {
						return err
					}
					internal.PrintError(s.out, err.Error())
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, errChatExit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLines sends input lines until EOF or ctx is done. A Scan still blocked
// on input when ctx ends is abandoned.
func readLines(ctx context.Context, in io.Reader, lines chan<- string) error {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	scanned := make(chan bool, 1)
	for {
		go func() { scanned <- scanner.Scan() }()
		select {
		case <-ctx.Done():
			return nil
		case ok := <-scanned:
			if !ok {
				return scanner.Err()
			}
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *chatSession) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		if s.panel.Busy() {
			s.panel.Stop()
		}
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		var page *internal.PageContext
		if settings.IncludePage {
			page = s.page
		}
		s.panel.SendMessage(ctx, line, page)
		return nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/exit", "/quit":
		return errChatExit
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	case "/stop":
		s.panel.Stop()
	case "/retry":
		return s.panel.RetryLast(ctx)
	case "/clear":
		if err := s.panel.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		internal.PrintSuccess(s.out, "Conversation cleared")
	case "/page":
		return s.setPage(ctx, arg)
	default:
		return fmt.Errorf("unknown command %s (try /help)", command)
	}
	return nil
}

func (s *chatSession) setPage(ctx context.Context, ref string) error {
	switch ref {
	case "":
		if s.page == nil {
			internal.PrintInfo(s.out, "No page attached")
		} else {
			internal.PrintInfo(s.out, fmt.Sprintf("Page: %s (%s)", s.page.Title, s.page.URL))
		}
		return nil
	case "off":
		s.page = nil
		internal.PrintInfo(s.out, "Page detached")
		return nil
	}

	page, err := loadPage(ctx, s.client, ref)
	if err != nil {
		return err
	}
	s.page = page
	if !settings.IncludePage {
		internal.PrintWarning(s.out, "include_page is false; the page will not be sent")
	}
	internal.PrintSuccess(s.out, fmt.Sprintf("Attached %s", ref))
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVarP(&chatResume, "resume", "r", false, "Continue the most recent conversation")
	chatCmd.Flags().StringVarP(&chatPage, "page", "p", "", "Attach a page (URL or local HTML file)")
}
