package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aretw0/catset/internal/config"
	"github.com/aretw0/catset/internal/platform"
)

var initWriteConfig bool

const configTemplate = `# catset configuration. Environment variables (CATSET_*) and flags override it.
dataset: %s
append_mode: %s
lexer: %s
store:
  backend: %s
  format: %s
  gitless: %t
tagger:
  kind: %s
  cache_size: %d
timeouts:
  tagger: %s
  store: %s
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a dataset store",
	Long: `Create the store (for the fs backend: the directory, the .catset system
directory and, unless --gitless, a git repository) and optionally write a
catset.yaml with the current settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Store.AutoInit = true
		if cfg.Store.ReadOnly {
			return errors.New("cannot initialize a store in read-only mode")
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		where := cfg.Store.Backend
		if cfg.Store.Backend == "fs" {
			if where, err = platform.ResolvePath(cfg.Store.Path); err != nil {
				return err
			}
		}
		pterm.Success.Printfln("Initialized %s store for %s in %s", cfg.Store.Backend, rt.Dataset, where)

		if !initWriteConfig {
			return nil
		}
		dir := where
		if cfg.Store.Backend != "fs" {
			if dir, err = os.Getwd(); err != nil {
				return err
			}
		}
		return writeConfigFile(filepath.Join(dir, config.FileName+".yaml"))
	},
}

func writeConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		pterm.Warning.Printfln("%s already exists, leaving it untouched", path)
		return nil
	}
	content := fmt.Sprintf(configTemplate,
		cfg.Dataset, cfg.AppendMode, cfg.Lexer,
		cfg.Store.Backend, cfg.Store.Format, cfg.Store.Gitless,
		cfg.Tagger.Kind, cfg.Tagger.CacheSize,
		cfg.Timeouts.Tagger, cfg.Timeouts.Store,
	)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	pterm.Success.Printfln("Wrote %s", path)
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "Write catset.yaml with the current settings")
	rootCmd.AddCommand(initCmd)
}
