package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Inspect scene documents",
	Long: `Read documents from the local store. Names are paths with an optional
version component, for example /root/ground or /root/ground/v=2.`,
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored document paths",
	Args:  cobra.NoArgs,
	RunE:  runDocList,
}

var docGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a document version as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocGet,
}

var docResolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Print a document with its children resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocResolve,
}

var docRenderCmd = &cobra.Command{
	Use:   "render [name]",
	Short: "Render a resolved document as markup",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocRender,
}

var docHistoryCmd = &cobra.Command{
	Use:   "history [path]",
	Short: "Show stored versions and applied patches for a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocHistory,
}

var docExportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Export a resolved document as a CAR archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocExport,
}

var exportOutput string

func init() {
	docExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Archive file to write (required)")
	_ = docExportCmd.MarkFlagRequired("output")

	docCmd.AddCommand(docListCmd)
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docResolveCmd)
	docCmd.AddCommand(docRenderCmd)
	docCmd.AddCommand(docHistoryCmd)
	docCmd.AddCommand(docExportCmd)
	rootCmd.AddCommand(docCmd)
}

func runDocList(cmd *cobra.Command, _ []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	paths, err := a.Documents().Paths(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(paths) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}
	for _, p := range paths {
		cmd.Println(p)
	}
	return nil
}

func runDocGet(cmd *cobra.Command, args []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	doc, err := a.Documents().Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	return printJSON(cmd, doc)
}

func runDocResolve(cmd *cobra.Command, args []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	resolved, err := a.Documents().Resolve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve document: %w", err)
	}
	return printJSON(cmd, resolved)
}

func runDocRender(cmd *cobra.Command, args []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	markup, err := a.Documents().Render(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}
	cmd.Println(markup)
	return nil
}

func runDocHistory(cmd *cobra.Command, args []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	history, err := a.Documents().History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	cmd.Printf("Path: %s\n", history.Path)
	cmd.Printf("Versions: %v\n", history.Versions)
	if len(history.Patches) == 0 {
		cmd.Println("No patches applied.")
		return nil
	}
	cmd.Println("Patches:")
	for _, p := range history.Patches {
		if p.Path != "" {
			cmd.Printf("  v%d  %-8s %s (prev %d)\n", p.Version, p.Op, p.Path, p.Prev)
		} else {
			cmd.Printf("  v%d  %-8s (prev %d)\n", p.Version, p.Op, p.Prev)
		}
	}
	return nil
}

func runDocExport(cmd *cobra.Command, args []string) error {
	a, err := requireApp(cmd.Context())
	if err != nil {
		return err
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	root, err := a.Documents().Export(cmd.Context(), args[0], f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(exportOutput)
		return fmt.Errorf("failed to export document: %w", err)
	}

	cmd.Printf("Exported %s to %s\n", args[0], exportOutput)
	cmd.Printf("Root: %s\n", root)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
