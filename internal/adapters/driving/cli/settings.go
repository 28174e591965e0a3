package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage node settings",
	Long: `View and configure the node: identity, storage, listen address,
peers and the group key used to sign entries.

Use subcommands to view settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the node step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}
	settingsService := a.Settings()
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Node]")
	switch {
	case settings.NodeID != "" && settings.Store != domain.StoreMemory:
		cmd.Printf("  ID: %s\n", settings.NodeID)
	case settings.Store == domain.StoreMemory:
		cmd.Printf("  ID: (new each run, currently %s)\n", a.Config().NodeID)
	default:
		cmd.Println("  ID: (assigned on first run)")
	}
	cmd.Printf("  Store: %s\n", settings.Store)
	cmd.Printf("  Data dir: %s\n", valueOrUnset(settings.DataDir))
	cmd.Printf("  Seed file: %s\n", valueOrUnset(settings.SeedFile))
	cmd.Printf("  Spool dir: %s\n", valueOrUnset(settings.SpoolDir))
	cmd.Printf("  Check prev: %t\n", settings.CheckPrev)
	cmd.Printf("  Max depth: %d\n", settings.MaxDepth)
	cmd.Println()

	cmd.Println("[Network]")
	cmd.Printf("  Listen: %s\n", settings.ListenAddr)
	cmd.Printf("  Advertise: %s\n", valueOrUnset(settings.AdvertiseAddr))
	if len(settings.Peers) == 0 {
		cmd.Println("  Peers: (none)")
	} else {
		cmd.Printf("  Peers: %s\n", strings.Join(settings.Peers, ", "))
	}
	if settings.GroupKey != "" {
		cmd.Printf("  Group key: %s\n", maskKey(settings.GroupKey))
	} else {
		cmd.Println("  Group key: (not set, digests only)")
	}
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Gossip interval: %s\n", settings.GossipInterval)
	cmd.Printf("  Fetch timeout: %s\n", settings.FetchTimeout)
	cmd.Printf("  Fetch rate: %g/s (burst %d)\n", settings.FetchRate, settings.FetchBurst)
	cmd.Println()

	check := *settings
	if check.NodeID == "" || check.Store == domain.StoreMemory {
		check.NodeID = a.Config().NodeID
	}
	if err := check.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'scenesync settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}
	settingsService := a.Settings()
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Scenesync Settings Wizard")
	cmd.Println("=========================")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	// Step 1: Storage
	cmd.Println("Step 1: Select Storage Backend")
	cmd.Println("------------------------------")
	backends := []domain.StoreBackend{domain.StoreMemory, domain.StoreSQLite}
	current := 1
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b)
		if b == settings.Store {
			current = i + 1
		}
	}
	cmd.Printf("\nEnter choice [%d]: ", current)
	settings.Store = backends[parseChoice(readLine(reader), len(backends), current)-1]
	cmd.Println()

	// Step 2: Network
	cmd.Println("Step 2: Network")
	cmd.Println("---------------")
	cmd.Printf("Listen address [%s]: ", settings.ListenAddr)
	if v := readLine(reader); v != "" {
		settings.ListenAddr = v
	}
	cmd.Printf("Advertise URL [%s]: ", valueOrUnset(settings.AdvertiseAddr))
	if v := readLine(reader); v != "" {
		settings.AdvertiseAddr = v
	}
	cmd.Printf("Peers, comma separated [%s]: ", strings.Join(settings.Peers, ","))
	if v := readLine(reader); v != "" {
		settings.Peers = splitList(v)
	}
	cmd.Printf("Gossip interval [%s]: ", settings.GossipInterval)
	if v := readLine(reader); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: gossip interval: %v", domain.ErrInvalidInput, err)
		}
		settings.GossipInterval = d
	}
	cmd.Println()

	// Step 3: Group key
	cmd.Println("Step 3: Group Key")
	cmd.Println("-----------------")
	cmd.Println("Writers sharing a group key sign and verify every entry.")
	cmd.Print("Group key (leave blank to keep current): ")
	if v := readPassword(in, reader); v != "" {
		settings.GroupKey = v
	}
	cmd.Println()
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	check := *settings
	if check.NodeID == "" {
		check.NodeID = a.Config().NodeID
	}
	if err := check.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && isTerminal(f.Fd()) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func isTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
