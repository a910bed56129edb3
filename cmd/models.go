package cmd

import (
	"fmt"

	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models served by the endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := settings.Endpoint()
		ids, err := internal.ListModels(cmd.Context(), newHTTPClient(), cfg)
		if err != nil {
			return fmt.Errorf("failed to list models at %s: %w", internal.NormalizeModelsURL(cfg.BaseURL), err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No models found"))
			return nil
		}
		for _, id := range ids {
			marker := "  "
			if id == cfg.ModelName {
				marker = countStyle.Render("* ")
			}
			fmt.Fprintf(out, "%s%s\n", marker, id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
