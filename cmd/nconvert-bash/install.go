package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/nconvert-bash/internal/archive"
	"github.com/pdiddy/nconvert-bash/internal/command"
	"github.com/pdiddy/nconvert-bash/internal/download"
	"github.com/pdiddy/nconvert-bash/internal/httputil"
	"github.com/pdiddy/nconvert-bash/internal/provision"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Provision system packages, NConvert, and the Python environment",
	Long: `Install removes any previous installation under the install root, checks
and installs the required APT packages, downloads and unpacks NConvert, and
creates a Python virtual environment with the required packages.

Stages run in order and the first failure stops the install with a non-zero
exit status.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().String("url", "", "NConvert archive URL")
	installCmd.Flags().Int("retries", 0, "download attempts before giving up")
	installCmd.Flags().String("deps-file", "", "YAML file replacing the built-in dependency list")
	_ = viper.BindPFlag(keyToolURL, installCmd.Flags().Lookup("url"))
	_ = viper.BindPFlag(keyDownloadRetries, installCmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag(keyDepsFile, installCmd.Flags().Lookup("deps-file"))

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := provisionConfig()
	if err != nil {
		return err
	}
	set, err := dependencySet(cfg)
	if err != nil {
		return err
	}

	out := os.Stdout
	log := slog.Default()
	fmt.Fprintf(out, "NConvert-Bash - Installation\nInstall root: %s\n", cfg.Layout.Root)

	client := httputil.NewClient(cfg.Download.Timeout)
	fetcher := download.New(client, cfg.Download.UserAgent, out, log)
	archives := archive.NewInstaller(cfg.Layout.StagingDir(), cfg.Layout.BinaryName, out, log)

	p := provision.New(cfg, command.NewOSExecutor(), set, fetcher, archives, out, provision.WithLogger(log))
	return p.Run(cmd.Context())
}
