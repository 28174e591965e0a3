package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scenesync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the node",
	Long: `Serve this writer's log entries, exchange sequence vectors with peers,
fetch and apply missing entries, and publish patches dropped into the
spool directory. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := requireApp(ctx)
	if err != nil {
		return err
	}

	cfg := a.Config()
	cmd.Printf("Node %s listening on %s (%s store)\n", cfg.NodeID, cfg.ListenAddr, cfg.Store)
	if len(cfg.Peers) > 0 {
		cmd.Printf("Peers: %v\n", cfg.Peers)
	}
	cmd.Printf("Spool: %s\n", cfg.SpoolDir)

	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.Info("node %s stopped", cfg.NodeID)
	return nil
}
