package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the supported source and target formats",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range types.FormatNames() {
			f := types.Format(name)
			fmt.Printf("%-9s .%s\n", name, f.Extension())
		}
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
