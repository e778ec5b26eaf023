package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aretw0/catset/internal/intake"
	"github.com/aretw0/catset/internal/platform"
	"github.com/aretw0/catset/pkg/core"
)

var (
	normalizeCode  string
	normalizePlain bool
	normalizeTags  bool
)

// normalizeCmd represents the normalize command
var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Preview the normalized form of Java code without saving it",
	Example: `  catset normalize --code 'String s = "abc"; // greet'
  catset normalize Snippet.java --tags`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := normalizeCode
		if len(args) == 1 {
			var err error
			if code, err = readSource(cmd.InOrStdin(), args[0]); err != nil {
				return err
			}
		}

		n, err := platform.NewNormalizer(cfg.Lexer)
		if err != nil {
			return err
		}
		normalized, err := n.Normalize(code)
		if err != nil {
			report(intake.Failure(err))
			return errReported
		}

		out := cmd.OutOrStdout()
		if normalizePlain {
			fmt.Fprintln(out, normalized)
		} else {
			fmt.Fprintln(out, highlight(normalized))
			pterm.Info.Printfln("%d tokens", len(strings.Fields(normalized)))
		}

		if !normalizeTags || normalized == "" {
			return nil
		}
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open tagger: %w", err)
		}
		tags, err := rt.Tagger.GenerateTags(cmd.Context(), normalized)
		if err != nil {
			report(intake.Failure(&core.TagGenerationError{Err: err}))
			return errReported
		}
		fmt.Fprintln(out, strings.Join(tags, " "))
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeCode, "code", "", "Java code to normalize")
	normalizeCmd.Flags().BoolVar(&normalizePlain, "plain", false, "Print only the normalized code, without colors")
	normalizeCmd.Flags().BoolVar(&normalizeTags, "tags", false, "Also run the tagger and print the CAT")
	rootCmd.AddCommand(normalizeCmd)
}
