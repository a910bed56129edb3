package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show or change the settings stored in config.yaml.

Environment variables PAGECHAT_BASE_URL, PAGECHAT_MODEL and PAGECHAT_API_KEY
override the file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := settings
		shown.APIKey = maskKey(shown.APIKey)

		data, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", settingsManager.SettingsPath())
		_, err = out.Write(data)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting and save config.yaml.

Keys: base_url, model_name, api_key, include_page, log_level, bridge_addr`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// start from the file so environment overrides are not persisted
		fileSettings, err := settingsManager.LoadFile()
		if err != nil {
			return err
		}
		if err := fileSettings.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := settingsManager.Save(fileSettings); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s updated", args[0]))
		return nil
	},
}

// maskKey keeps the last four characters of an API key
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
