package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aretw0/catset/internal/intake"
)

var (
	addCode     string
	addCodeFile string
	addComment  string
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a code snippet and its comment to the dataset",
	Long: `Normalize the code, generate its CAT and append the entry to the dataset.

The code comes from --code, or from --file ("-" reads stdin).`,
	Example: `  catset add --code 'int x = 42; // set x' --comment 'declare x'
  catset add --file Snippet.java --comment 'binary search'
  pbpaste | catset add --file - --comment 'from clipboard'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := addCode
		if addCodeFile != "" {
			var err error
			if code, err = readSource(cmd.InOrStdin(), addCodeFile); err != nil {
				return err
			}
		}

		sub := intake.Submission{Code: code, Comment: addComment}
		// Blank fields are reported without opening the store.
		if err := sub.Validate(); err != nil {
			report(intake.Failure(err))
			return errReported
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open dataset: %w", err)
		}

		out := intake.Process(cmd.Context(), rt, sub)
		report(out)
		if !out.OK {
			return errReported
		}
		fmt.Fprintln(cmd.OutOrStdout(), entryCard(0, *out.Entry))
		return nil
	},
}

// readSource reads a file, or stdin for "-".
func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// report prints an outcome the way the intake form shows it.
func report(out intake.Outcome) {
	switch out.Level {
	case intake.LevelSuccess:
		pterm.Success.Println(out.Message)
	case intake.LevelWarning:
		pterm.Warning.Println(out.Message)
	default:
		pterm.Error.Println(out.Message)
	}
}

func init() {
	addCmd.Flags().StringVar(&addCode, "code", "", "Java code to add")
	addCmd.Flags().StringVarP(&addCodeFile, "file", "f", "", "Read the code from a file (- for stdin)")
	addCmd.Flags().StringVarP(&addComment, "comment", "m", "", "Comment describing the code")
	addCmd.MarkFlagsMutuallyExclusive("code", "file")
	rootCmd.AddCommand(addCmd)
}
