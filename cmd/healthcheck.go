package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
	healthcheckTimeout time.Duration
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check settings, history and the endpoint",
	Long: `Check the health of pagechat by verifying:
  • Settings file
  • History database access
  • Endpoint reachability
  • Availability of the configured model

This command is useful for debugging a new endpoint or model setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := false

		fmt.Fprintln(out, sectionStyle.Render("pagechat health check"))
		fmt.Fprintln(out)

		// Step 1: Settings
		fmt.Fprintln(out, infoStyle.Render("Step 1: Reading settings..."))
		if _, err := os.Stat(settingsManager.SettingsPath()); err == nil {
			fmt.Fprintln(out, successStyle.Render("✅ Settings file found"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No settings file, using defaults"))
		}
		if healthcheckDetails {
			fmt.Fprintf(out, "   File: %s\n", settingsManager.SettingsPath())
			fmt.Fprintf(out, "   Base URL: %s\n", settings.BaseURL)
			fmt.Fprintf(out, "   Model: %s\n", settings.ModelName)
			fmt.Fprintf(out, "   API key: %t\n", settings.APIKey != "")
		}
		fmt.Fprintln(out)

		// Step 2: History
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening history database..."))
		storage, db, err := openHistory()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open history:"), err)
			failed = true
		} else {
			summaries, err := storage.List(cmd.Context())
			db.Close()
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to read history:"), err)
				failed = true
			} else {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ History available (%d conversation(s))", len(summaries))))
			}
			if healthcheckDetails {
				fmt.Fprintf(out, "   Database: %s\n", settingsManager.HistoryPath())
			}
		}
		fmt.Fprintln(out)

		// Step 3: Endpoint
		cfg := settings.Endpoint()
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting endpoint..."))
		ctx, cancel := context.WithTimeout(cmd.Context(), healthcheckTimeout)
		defer cancel()
		models, err := internal.ListModels(ctx, newHTTPClient(), cfg)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Endpoint unreachable:"), err)
			if healthcheckDetails {
				fmt.Fprintf(out, "   URL: %s\n", internal.NormalizeModelsURL(cfg.BaseURL))
			}
			var protoErr *internal.ProtocolError
			if errors.As(err, &protoErr) && protoErr.StatusCode == 401 {
				fmt.Fprintln(out, "   The endpoint needs an API key: pagechat config set api_key <key>")
			}
			failed = true
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Endpoint serves %d model(s)", len(models))))
			if healthcheckDetails {
				for i, id := range models {
					if i == 5 {
						fmt.Fprintf(out, "   ... and %d more\n", len(models)-5)
						break
					}
					fmt.Fprintf(out, "   [%d] %s\n", i+1, id)
				}
			}
		}
		fmt.Fprintln(out)

		// Step 4: Model
		if err == nil {
			fmt.Fprintln(out, infoStyle.Render("Step 4: Checking model..."))
			if containsString(models, cfg.ModelName) {
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Model %s is available", cfg.ModelName)))
			} else {
				fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Model %s is not listed by the endpoint", cfg.ModelName)))
				fmt.Fprintln(out, "   Pick one from 'pagechat models' with: pagechat config set model_name <id>")
			}
			fmt.Fprintln(out)
		}

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("Summary"))
		fmt.Fprintln(out)
		if failed {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			return fmt.Errorf("health check failed")
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 10*time.Second, "Timeout for the endpoint request")
}
