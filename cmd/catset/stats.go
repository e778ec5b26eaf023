package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	statsTop  int
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the dataset: entries, tokens and tag frequencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}
		st, err := rt.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read dataset: %w", err)
		}

		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		pterm.DefaultSection.Println(rt.Dataset.String())
		pterm.Info.Printfln("%d entries, %d tokens", st.Entries, st.Tokens)
		if st.Misaligned > 0 {
			pterm.Warning.Printfln("%d entries have a CAT that does not match their token count", st.Misaligned)
		}

		top := st.TopTags(statsTop)
		if len(top) == 0 {
			return nil
		}
		data := pterm.TableData{{"Tag", "Count", "Share"}}
		for _, tc := range top {
			share := 0.0
			if st.Tokens > 0 {
				share = float64(tc.Count) / float64(st.Tokens) * 100
			}
			data = append(data, []string{tc.Tag, strconv.Itoa(tc.Count), fmt.Sprintf("%.1f%%", share)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 15, "Number of tags to show (0 shows all)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statsCmd)
}
