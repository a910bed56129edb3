package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/pagechat/internal"
	"github.com/iksnae/pagechat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	exportAll bool
)

var historyExportCmd = &cobra.Command{
	Use:   "export [conversation-id]",
	Short: "Export conversations to files",
	Long: `Export stored conversations to jsonl, md, yaml or json files.

Without an id the most recent conversation is exported; --all exports every
stored conversation. Use 'pagechat history list' to see available ids.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		storage, db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		var conversations []*internal.Conversation
		if exportAll {
			summaries, err := storage.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, sum := range summaries {
				conv, err := storage.Load(cmd.Context(), sum.ID)
				if err != nil {
					return err
				}
				if conv != nil {
					conversations = append(conversations, conv)
				}
			}
		} else {
			conv, err := loadConversation(cmd, storage, args)
			if err != nil {
				return err
			}
			conversations = append(conversations, conv)
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Exporting %d conversation(s) to %s", len(conversations), outputDir), func() error {
			for _, conv := range conversations {
				path := filepath.Join(outputDir, fmt.Sprintf("conversation_%s.%s", conv.ID, exporter.Extension()))
				if err := exportToFile(exporter, conv, path); err != nil {
					internal.LogError("%v", &internal.ExportError{Format: format, Path: path, Err: err})
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		if exported < len(conversations) {
			return fmt.Errorf("exported %d of %d conversation(s)", exported, len(conversations))
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Export complete: %d conversation(s) exported to %s", exported, outputDir))
		return nil
	},
}

func exportToFile(exporter export.Exporter, conv *internal.Conversation, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.Export(conv, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func init() {
	historyCmd.AddCommand(historyExportCmd)
	historyExportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format ("+strings.Join(export.Formats, ", ")+")")
	historyExportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	historyExportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every stored conversation")
}
