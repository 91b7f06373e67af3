package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/importer"
	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	var (
		format string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a household task list",
		Long: "Import tasks from a markdown table (| Wat | Hoe vaak |) or a YAML file. " +
			"Tasks whose name already exists are skipped; unrecognised recurrence phrases become continuous tasks.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open task list: %w", err)
			}
			defer func() {
				_ = f.Close()
			}()

			entries, err := parseTaskList(f, resolveFormat(format, args[0]))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks found")
				return nil
			}

			cfg, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			im := importer.New(database.NewTaskRepository(db), cfg.Now)
			res, err := im.Import(context.Background(), entries, dryRun)
			printImportResult(cmd.OutOrStdout(), res, dryRun)
			if err != nil {
				return fmt.Errorf("import stopped: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Input format: markdown or yaml (default: from file extension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate without storing anything")

	return cmd
}

func resolveFormat(format, path string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "markdown"
	}
}

func parseTaskList(r io.Reader, format string) ([]importer.Entry, error) {
	switch format {
	case "markdown", "md":
		return importer.ParseMarkdown(r)
	case "yaml", "yml":
		return importer.ParseYAML(r)
	default:
		return nil, fmt.Errorf("unknown format %q (use markdown or yaml)", format)
	}
}

func printImportResult(out io.Writer, res importer.Result, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	for _, name := range res.Skipped {
		fmt.Fprintf(out, "Skipping existing task: %s\n", name)
	}
	for _, name := range res.Defaulted {
		fmt.Fprintf(out, "Unrecognised recurrence, imported as continuous: %s\n", name)
	}
	for _, name := range res.Imported {
		fmt.Fprintf(out, "%s: %s\n", verb, name)
	}
	fmt.Fprintf(out, "\n%s %d tasks\n", verb, len(res.Imported))
}
