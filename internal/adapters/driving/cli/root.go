// Package cli provides the scenesync command line.
//
// Commands reach the node through an App. cmd/scenesync registers an
// Opener that builds the node for the chosen config directory; tests set
// an App directly.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scenesync/internal/core/domain"
	"github.com/custodia-labs/scenesync/internal/core/ports/driving"
	"github.com/custodia-labs/scenesync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// App is the node as seen by commands.
type App interface {
	Config() domain.Config
	Documents() driving.DocumentService
	Publisher() driving.Publisher
	Reconciler() driving.Reconciler
	Settings() driving.SettingsService
	LocalVector() domain.SequenceVector
	RemoteVector() domain.SequenceVector
	Tasks() []domain.ScheduledTask
	Run(ctx context.Context) error
	Close() error
}

// Opener builds an App for a config directory.
type Opener func(ctx context.Context, configDir string) (App, error)

var (
	configDir string
	verbose   bool

	opener Opener
	app    App
)

var rootCmd = &cobra.Command{
	Use:   "scenesync",
	Short: "Collaborative versioned scene store",
	Long: `scenesync keeps a versioned tree of scene documents and replicates
edits between writers by exchanging sequence vectors and fetching the
entries each node is missing.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.scenesync)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// SetOpener registers how commands open the node.
func SetOpener(fn Opener) {
	opener = fn
}

// SetApp installs an already opened App.
func SetApp(a App) {
	app = a
}

// Execute runs the root command.
func Execute() error {
	defer closeApp()
	return rootCmd.Execute()
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// requireApp opens the node on first use.
func requireApp(ctx context.Context) (App, error) {
	if app != nil {
		return app, nil
	}
	if opener == nil {
		return nil, errors.New("node not configured")
	}
	a, err := opener(ctx, configDir)
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

func closeApp() {
	if app == nil {
		return
	}
	if err := app.Close(); err != nil {
		logger.Warn("closing node: %v", err)
	}
	app = nil
}

// outputIsTerminal reports whether w is an interactive terminal.
func outputIsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isTerminal(f.Fd())
}
