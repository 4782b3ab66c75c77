package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nconvert-bash/internal/command"
	"github.com/pdiddy/nconvert-bash/internal/convert"
	"github.com/pdiddy/nconvert-bash/internal/history"
	"github.com/pdiddy/nconvert-bash/internal/metrics"
	"github.com/pdiddy/nconvert-bash/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert every matching image in a folder with NConvert",
	Long: `Convert walks the folder (default: the workspace under the install root)
for files of the source format and runs NConvert on each, writing the
output next to the input with the target format's extension. One failing
file never stops the batch. With --delete-after, originals are removed
once their conversion succeeded.`,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.String("folder", "", "folder to scan (default: <root>/workspace)")
	f.String("source", string(types.FormatPSPImage), "source format")
	f.String("target", string(types.FormatJPEG), "target format")
	f.Bool("delete-after", false, "delete originals after a successful conversion")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile")
	f.Bool("json", false, "print the summary as JSON instead of the text log")
	f.Bool("no-history", false, "do not record this run in the history database")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := conversionConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	folder, _ := flags.GetString("folder")
	if folder == "" {
		folder = cfg.Layout.WorkspaceDir
	}
	source, _ := flags.GetString("source")
	target, _ := flags.GetString("target")
	deleteAfter, _ := flags.GetBool("delete-after")
	metricsFile, _ := flags.GetString("metrics-file")
	asJSON, _ := flags.GetBool("json")
	noHistory, _ := flags.GetBool("no-history")

	session := convert.NewSession(folder)
	if err := session.SetSource(source); err != nil {
		return err
	}
	if err := session.SetTarget(target); err != nil {
		return err
	}
	session.SetDeleteAfter(deleteAfter)
	job, err := session.Job()
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if asJSON {
		out = io.Discard
	}
	log := slog.Default()
	bin := cfg.Layout.ConverterPath()
	conv := convert.NewNConvertConverter(command.NewOSExecutor(), bin, cfg.Timeout)

	start := time.Now()
	summary := convert.NewBatchConverter(conv, bin, out, log).Run(cmd.Context(), job)
	elapsed := time.Since(start)

	if !noHistory && summary.Total > 0 {
		recordHistory(cmd, cfg.Layout.HistoryDB(), job, summary, start, elapsed)
	}
	if metricsFile != "" {
		rec := metrics.New()
		if err := rec.Load(metricsFile); err != nil {
			log.Warn("loading previous metrics; counters restart at zero", "error", err)
		}
		rec.Observe(job, summary, elapsed)
		if err := rec.WriteTextfile(metricsFile); err != nil {
			log.Warn("writing metrics", "error", err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	}

	switch {
	case summary.Aborted:
		return fmt.Errorf("%s", summary.Message)
	case summary.HasFailures():
		return fmt.Errorf("%d of %d file(s) failed conversion", summary.Failed, summary.Total)
	}
	return nil
}

// recordHistory stores the run. History is a convenience, so failures are
// logged and the command still succeeds.
func recordHistory(cmd *cobra.Command, path string, job types.ConversionJob, s types.Summary, start time.Time, elapsed time.Duration) {
	store, err := history.Open(path)
	if err != nil {
		slog.Warn("opening history database", "path", path, "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(cmd.Context(), job, s, start, elapsed); err != nil {
		slog.Warn("recording conversion history", "error", err)
	}
}
