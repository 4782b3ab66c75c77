// Package main is the entry point for the nconvert-bash CLI. Subcommands
// provision the NConvert runtime (install, validate) and drive batch image
// conversion (convert, history, formats).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/nconvert-bash/internal/envfile"
)

// version is set at build time via ldflags.
var version = "dev"

// envKeyReplacer maps config keys such as tool.url to NCONVERT_BASH_TOOL_URL.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

var rootCmd = &cobra.Command{
	Use:   "nconvert-bash",
	Short: "Install NConvert and batch-convert images with it",
	Long: `nconvert-bash provisions a local NConvert installation (system packages,
the NConvert binary, and a Python virtual environment) and runs NConvert
over every matching image in a folder.

Run "install" once, "validate" to check the result, then "convert".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		keys, err := envfile.Load(envfile.DefaultFiles...)
		if err != nil {
			return err
		}
		setupLogging()
		if len(keys) > 0 {
			slog.Debug("loaded environment files", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./nconvert-bash.yaml or ~/.config/nconvert-bash/nconvert-bash.yaml)")
	pf.String("root", "", "install root holding data/, venv/ and workspace/ (default: current directory)")
	pf.BoolP("verbose", "v", false, "enable debug logging on stderr")
	_ = viper.BindPFlag("root", pf.Lookup("root"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nconvert-bash")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "nconvert-bash"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("NCONVERT_BASH")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
