package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the git history of the dataset (fs store)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		commits, err := rt.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(commits) == 0 {
			pterm.Info.Printfln("No commits for %s yet", rt.Dataset)
			return nil
		}

		data := pterm.TableData{{"Commit", "Date", "Message"}}
		for _, c := range commits {
			hash := c.Hash
			if len(hash) > 8 {
				hash = hash[:8]
			}
			data = append(data, []string{hash, c.Date.Format("2006-01-02 15:04"), c.Subject})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of commits to show")
	rootCmd.AddCommand(historyCmd)
}
