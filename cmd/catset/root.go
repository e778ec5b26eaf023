package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aretw0/catset"
	"github.com/aretw0/catset/internal/config"
)

var (
	verbose bool
	cfgFile *string
	cfg     *config.Config

	rtOnce sync.Once
	rt     *catset.Runtime
	rtErr  error
)

// errReported marks failures whose message was already shown to the user.
var errReported = errors.New("reported")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catset",
	Short: "Build a dataset of normalized Java code, aligned tags and comments",
	Long: `catset normalizes Java snippets (comments stripped, literals hidden behind
STR_/NUM_/BOOL_), asks a tagger for one tag per token and appends the
(code, CAT, comment) triple to a shared dataset document.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = config.Load(cmd, *cfgFile, cwd)
		return err
	},
}

// openRuntime opens the process-wide runtime on first use. Commands that
// never touch the dataset do not pay for opening the store.
func openRuntime(ctx context.Context) (*catset.Runtime, error) {
	rtOnce.Do(func() {
		rt, rtErr = catset.Open(ctx, cfg, catset.WithLogger(slog.Default()))
	})
	return rt, rtErr
}

func closeRuntime() {
	if rt == nil {
		return
	}
	if err := rt.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeRuntime()

	if err != nil {
		if !errors.Is(err, errReported) {
			pterm.Error.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	cfgFile = config.InitFlags(rootCmd)
}
