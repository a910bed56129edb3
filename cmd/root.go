package cmd

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	configDir string
	version   string = "dev"
	commit    string = "unknown"
	date      string = "unknown"

	settingsManager *internal.SettingsManager
	settings        internal.Settings
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagechat",
	Short: "Chat with a local LLM about the page you are reading",
	Long: `A terminal chat client for OpenAI-compatible endpoints such as Ollama.

Replies stream in as they are generated and can be stopped at any time.
A web page (URL or local HTML file) can be attached so the model answers
from its content.

Quick Start:
  pagechat chat                                  # Interactive chat
  pagechat ask "What changed?" --page <url>      # One-shot question about a page
  pagechat config set model_name llama3          # Change the model
  pagechat serve                                 # Websocket bridge for the browser panel`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := configDir
		if dir == "" {
			var err error
			dir, err = internal.DefaultStateDir()
			if err != nil {
				return err
			}
		}
		settingsManager = internal.NewSettingsManager(dir)

		loaded, err := settingsManager.Load()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		settings = loaded

		level, err := internal.ParseLogLevel(settings.LogLevel)
		if err != nil {
			internal.LogWarn("%v, using info", err)
			level = internal.LogLevelInfo
		}
		internal.SetLogLevel(level)
		internal.SetVerbose(verbose)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openHistory opens the history database under the state directory
func openHistory() (*internal.Storage, *sql.DB, error) {
	if err := settingsManager.EnsureDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", settingsManager.Dir(), err)
	}
	path := settingsManager.HistoryPath()
	db, err := internal.OpenDatabase(path)
	if err != nil {
		return nil, nil, &internal.StoreError{Path: path, Op: "open", Err: err}
	}
	return internal.NewStorage(db, path), db, nil
}

// newHTTPClient returns the client used for endpoint calls. Streams have no
// overall timeout; only the wait for response headers is bounded.
func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = 2 * time.Minute
	return &http.Client{Transport: transport}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "State directory holding config.yaml and history.db (default ~/.pagechat)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
