package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/pagechat/internal"
	"github.com/iksnae/pagechat/internal/bridge"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket bridge for the browser panel",
	Long: `Run a loopback websocket bridge so a browser side panel can stream
replies through pagechat.

The panel connects to ws://<addr>/ws and sends streamLLM / stopStream
actions; replies come back as streamChunk, streamComplete and streamError.
Fields the panel leaves empty are taken from the settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = settings.BridgeAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := bridge.NewServer(addr, newHTTPClient(), settings.Endpoint())
		internal.PrintInfo(cmd.OutOrStdout(), fmt.Sprintf("Bridge listening on ws://%s/ws (Ctrl-C to stop)", server.Addr()))
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("bridge stopped: %w", err)
		}
		internal.LogInfo("bridge shut down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from bridge_addr setting)")
}
