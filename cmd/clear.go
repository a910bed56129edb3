package cmd

import (
	"errors"
	"fmt"

	"github.com/iksnae/pagechat/internal"
	"github.com/spf13/cobra"
)

var clearAll bool

var historyClearCmd = &cobra.Command{
	Use:   "clear [conversation-id]",
	Short: "Delete stored conversations",
	Long:  `Delete one stored conversation by id, or every conversation with --all.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !clearAll {
			return errors.New("give a conversation id or --all")
		}

		storage, db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()

		ids := args
		if clearAll {
			summaries, err := storage.List(cmd.Context())
			if err != nil {
				return err
			}
			ids = nil
			for _, sum := range summaries {
				ids = append(ids, sum.ID)
			}
		}

		for _, id := range ids {
			if err := storage.Clear(cmd.Context(), id); err != nil {
				return err
			}
			internal.LogDebug("cleared conversation %s", id)
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted %d conversation(s)", len(ids)))
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
	historyClearCmd.Flags().BoolVar(&clearAll, "all", false, "Delete every stored conversation")
}
