package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/pagechat/internal"
	"github.com/iksnae/pagechat/testutil"
	"github.com/spf13/cobra"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writers of the chat loop
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// resetFlags restores flag variables, which cobra keeps between executions
func resetFlags() {
	verbose = false
	configDir = ""
	askPage = ""
	askNoSave = false
	chatResume = false
	chatPage = ""
	format = "jsonl"
	outputDir = "./exports"
	exportAll = false
	clearAll = false
	limit = 0
	healthcheckDetails = false
	healthcheckTimeout = 10 * time.Second
	serveAddr = ""

	// cobra's own --help and --version flags live on every command that has run
	for _, c := range append([]*cobra.Command{rootCmd}, allSubcommands(rootCmd)...) {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set("false")
				f.Changed = false
			}
		}
	}
}

func allSubcommands(c *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, sub := range c.Commands() {
		cmds = append(cmds, sub)
		cmds = append(cmds, allSubcommands(sub)...)
	}
	return cmds
}

// runCommand executes the root command with args and stdin, returning its output
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Setenv("PAGECHAT_BASE_URL", "")
	t.Setenv("PAGECHAT_MODEL", "")
	t.Setenv("PAGECHAT_API_KEY", "")

	out := &syncBuffer{}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newStateDir creates a state directory whose settings point at baseURL
func newStateDir(t *testing.T, baseURL string) string {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	testutil.CreateSettingsFixture(t, dir, "base_url: "+baseURL+"\nmodel_name: granite4:3b\nlog_level: error\n")
	return dir
}

// seedHistory stores conversations in the state directory's history database
func seedHistory(t *testing.T, dir string, convs ...*internal.Conversation) {
	t.Helper()
	path := filepath.Join(dir, "history.db")
	db, err := internal.OpenDatabase(path)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer db.Close()

	storage := internal.NewStorage(db, path)
	for _, conv := range convs {
		if err := storage.Save(context.Background(), conv); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
}
