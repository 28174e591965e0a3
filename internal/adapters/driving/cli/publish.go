package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scenesync/internal/adapters/driving/spool"
	"github.com/custodia-labs/scenesync/internal/core/domain"
)

var publishCmd = &cobra.Command{
	Use:   "publish [file|-]",
	Short: "Queue a patch for the running node to publish",
	Long: `Validate a patch and place it in the node's spool directory. The node
started with 'scenesync serve' applies it, assigns it the next local
sequence number and announces it to peers.

Use - to read the patch from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	data, err := readPatchInput(cmd, args[0])
	if err != nil {
		return err
	}

	patch, err := domain.DecodePatch(data)
	if err != nil {
		return fmt.Errorf("failed to decode patch: %w", err)
	}
	// The node stamps a missing version when it publishes.
	check := *patch
	if check.Version < 0 {
		check.Version = 0
	}
	if err := check.Validate(); err != nil {
		return err
	}

	dir := a.Config().SpoolDir
	if dir == "" {
		return errors.New("spool directory not configured")
	}
	path, err := spool.Enqueue(dir, data)
	if err != nil {
		return fmt.Errorf("failed to queue patch: %w", err)
	}

	if patch.Version < 0 {
		cmd.Printf("Queued %s %s (version assigned on publish)\n", patch.Op, patch.Name)
	} else {
		cmd.Printf("Queued %s %s (version %d)\n", patch.Op, patch.Name, patch.Version)
	}
	cmd.Printf("Spool file: %s\n", path)
	return nil
}

func readPatchInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg != "-" {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read patch: %w", err)
		}
		return data, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f.Fd()) {
		return nil, errors.New("refusing to read a patch from a terminal; pipe it in or pass a file")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch: %w", err)
	}
	return data, nil
}
