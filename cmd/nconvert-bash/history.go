package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nconvert-bash/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent conversion runs, or the files of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", history.DefaultLimit, "number of runs to list")
	historyCmd.Flags().StringP("format", "f", "table", "output format: table, json, or yaml")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	l, err := resolveLayout()
	if err != nil {
		return err
	}
	path := l.HistoryDB()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(os.Stdout, "no conversion runs recorded")
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		outcomes, err := store.Outcomes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			return fmt.Errorf("no outcomes recorded for run %s", args[0])
		}
		for _, o := range outcomes {
			if o.Success {
				fmt.Printf("✓ %s → %s (%s)\n", filepath.Base(o.Input), filepath.Base(o.Output), o.Duration)
			} else {
				fmt.Printf("✗ %s: %s\n", filepath.Base(o.Input), o.Error)
			}
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	switch format {
	case "table":
		history.WriteTable(os.Stdout, runs)
		return nil
	case "json":
		return history.WriteJSON(os.Stdout, runs)
	case "yaml":
		return history.WriteYAML(os.Stdout, runs)
	default:
		return fmt.Errorf("unknown format %q (want table, json, or yaml)", format)
	}
}
