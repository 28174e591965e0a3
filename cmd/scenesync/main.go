// Command scenesync runs and inspects a scene replication node.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/scenesync/internal/adapters/driving/cli"
	"github.com/custodia-labs/scenesync/internal/node"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetOpener(func(ctx context.Context, configDir string) (cli.App, error) {
		return node.Open(ctx, configDir)
	})
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
