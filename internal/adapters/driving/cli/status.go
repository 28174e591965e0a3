package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/scenesync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node identity, sequence vectors and task state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusStyles colours status output. The zero value prints plain text.
type statusStyles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	errored lipgloss.Style
}

func newStatusStyles(colour bool) statusStyles {
	if !colour {
		plain := lipgloss.NewStyle()
		return statusStyles{plain, plain, plain, plain, plain, plain}
	}
	return statusStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		errored: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	st := newStatusStyles(outputIsTerminal(cmd.OutOrStdout()))
	cfg := a.Config()

	cmd.Println(st.title.Render("Node"))
	cmd.Printf("  %s %s\n", st.label.Render("ID:"), cfg.NodeID)
	cmd.Printf("  %s %s\n", st.label.Render("Store:"), cfg.Store)
	cmd.Printf("  %s %s\n", st.label.Render("Listen:"), cfg.ListenAddr)
	cmd.Println()

	local := a.LocalVector()
	remote := a.RemoteVector()
	cmd.Println(st.title.Render("Sequence Vectors"))
	writers := mergedWriters(local, remote)
	if len(writers) == 0 {
		cmd.Println(st.muted.Render("  No writers known."))
	}
	for _, w := range writers {
		l, r := local.Get(w), remote.Get(w)
		var lag string
		switch {
		case r > l:
			lag = st.warning.Render(fmt.Sprintf("behind by %d", r-l))
		case w == cfg.NodeID:
			lag = st.muted.Render("self")
		default:
			lag = st.success.Render("in sync")
		}
		cmd.Printf("  %-20s local %-6d remote %-6d %s\n", w, l, r, lag)
	}
	cmd.Println()

	if rec := a.Reconciler(); rec != nil {
		status := rec.Status()
		cmd.Println(st.title.Render("Reconciler"))
		cmd.Printf("  %s %s\n", st.label.Render("State:"), status.State)
		cmd.Printf("  %s %d\n", st.label.Render("Passes:"), status.Stats.Passes)
		cmd.Printf("  %s %d fetched, %d applied, %d skipped\n", st.label.Render("Entries:"),
			status.Stats.Fetched, status.Stats.Applied, status.Stats.Skipped)
		cmd.Printf("  %s %s\n", st.label.Render("Last pass:"), formatTime(status.Stats.LastPass))
		cmd.Println()
	}

	tasks := a.Tasks()
	if len(tasks) > 0 {
		cmd.Println(st.title.Render("Tasks"))
		for i := range tasks {
			t := &tasks[i]
			result := st.success.Render("ok")
			switch {
			case t.LastError != "":
				result = st.errored.Render(t.LastError)
			case t.Runs == 0:
				result = st.muted.Render("not run")
			}
			cmd.Printf("  %-14s every %-8s runs %-4d %s\n", t.ID, t.Interval, t.Runs, result)
		}
	}
	return nil
}

func mergedWriters(vectors ...domain.SequenceVector) []domain.WriterID {
	all := domain.SequenceVector{}
	for _, v := range vectors {
		all.Merge(v)
	}
	return all.Writers()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
