package main

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aretw0/catset/internal/intake"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the intake form and the JSON API",
	Long: `Serve an HTML form at / and a JSON API:

  POST /entries   add an entry (JSON or form encoded)
  GET  /entries   list entries (?limit, ?offset)
  GET  /stats     dataset summary (?top)
  GET  /health    liveness`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}

		pterm.Info.Printfln("Serving %s on %s (store: %s, tagger: %s)",
			rt.Dataset, cfg.Server.Addr, cfg.Store.Backend, cfg.Tagger.Kind)

		srv := intake.NewServer(rt, rt.Dataset.String(), cfg.Server.Addr, slog.Default())
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
