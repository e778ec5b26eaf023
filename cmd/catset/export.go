package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/catset/pkg/core"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dataset for training (jsonl, json or yaml)",
	Example: `  catset export > dataset.jsonl
  catset export --format yaml -o dataset.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		entries, err := rt.Entries(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read dataset: %w", err)
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}

		if err := writeEntries(w, exportFormat, entries); err != nil {
			return err
		}
		if exportOutput != "" && exportOutput != "-" {
			pterm.Success.Printfln("Exported %d entries to %s", len(entries), exportOutput)
		}
		return nil
	},
}

// writeEntries encodes entries in the given format.
func writeEntries(w io.Writer, format string, entries []core.Entry) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("failed to encode entry: %w", err)
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(core.Dataset{Entries: entries})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(core.Dataset{Entries: entries}); err != nil {
			return fmt.Errorf("failed to encode dataset: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown export format %q (want jsonl, json or yaml)", format)
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "Output format: jsonl, json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
