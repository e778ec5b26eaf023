package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/catset"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of catset",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("catset version %s\n", strings.TrimSpace(catset.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
