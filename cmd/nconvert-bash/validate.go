package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nconvert-bash/internal/command"
	"github.com/pdiddy/nconvert-bash/internal/provision"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that an installation is complete and working",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := provisionConfig()
		if err != nil {
			return err
		}
		report := provision.Validate(cmd.Context(), cfg, command.NewOSExecutor())

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			report.Write(os.Stdout)
		}
		if !report.OK() {
			return fmt.Errorf("installation is incomplete")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(validateCmd)
}
