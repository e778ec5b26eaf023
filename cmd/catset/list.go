package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	listJSON    bool
	listLimit   int
	listComment string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entries of the dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		entries, err := rt.Entries(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read dataset: %w", err)
		}

		var shown []int
		for i, e := range entries {
			if listComment != "" && !strings.Contains(strings.ToLower(e.Comment), strings.ToLower(listComment)) {
				continue
			}
			shown = append(shown, i)
		}
		if listLimit > 0 && len(shown) > listLimit {
			shown = shown[len(shown)-listLimit:]
		}

		out := cmd.OutOrStdout()
		if listJSON {
			selected := make([]any, 0, len(shown))
			for _, i := range shown {
				selected = append(selected, entries[i])
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(selected)
		}

		if len(shown) == 0 {
			fmt.Fprintf(out, "No entries in %s.\n", rt.Dataset)
			return nil
		}
		for _, i := range shown {
			fmt.Fprintln(out, entryCard(i+1, entries[i]))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show only the last n entries (0 shows all)")
	listCmd.Flags().StringVar(&listComment, "comment", "", "Filter by a case-insensitive comment substring")
	rootCmd.AddCommand(listCmd)
}
