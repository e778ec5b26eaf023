package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aretw0/catset/pkg/adapters/lifecycle"
	"github.com/aretw0/catset/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Stream changes made to the dataset by other writers",
	Long: `Watch the fs store and print every change to documents matching the
pattern ("collection/name", doublestar syntax). Defaults to the configured
dataset. Stop with Ctrl+C.`,
	Example: `  catset watch
  catset watch 'datasets/*'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}

		pattern := rt.Dataset.String()
		if len(args) == 1 {
			pattern = args[0]
		}

		src := lifecycle.NewSource(rt, pattern)
		if err := src.Start(cmd.Context()); err != nil {
			return err
		}
		pterm.Info.Printfln("Watching %s (Ctrl+C to stop)", pattern)

		for ev := range src.Events() {
			e, ok := ev.(core.Event)
			if !ok {
				continue
			}
			line := fmt.Sprintf("%s %s", time.Unix(e.Timestamp, 0).Format(time.TimeOnly), e)
			if e.Type == core.EventDelete {
				pterm.Warning.Println(line)
				continue
			}
			pterm.Success.Println(line)
			if e.ID == rt.Dataset {
				if st, err := rt.Stats(cmd.Context()); err == nil {
					pterm.Info.Printfln("%d entries", st.Entries)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
