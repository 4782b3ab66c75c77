package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pdiddy/nconvert-bash/internal/convert"
	"github.com/pdiddy/nconvert-bash/internal/deps"
	"github.com/pdiddy/nconvert-bash/internal/download"
	"github.com/pdiddy/nconvert-bash/internal/httputil"
	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// Configuration keys. Each is also readable from NCONVERT_BASH_<KEY> with
// dots replaced by underscores.
const (
	keyRoot            = "root"
	keyToolURL         = "tool.url"
	keyToolBinary      = "tool.binary"
	keyDownloadRetries = "download.retries"
	keyDownloadTimeout = "download.timeout"
	keyUserAgent       = "download.user_agent"
	keyConvertTimeout  = "convert.timeout"
	keyDepsFile        = "deps.file"
	keyPythonBin       = "python.interpreter"
	keyPythonPackages  = "python.packages"
	keyPythonSkip      = "python.skip"
)

func setDefaults() {
	viper.SetDefault(keyRoot, ".")
	viper.SetDefault(keyToolURL, types.DefaultToolURL)
	viper.SetDefault(keyToolBinary, types.DefaultBinaryName)
	viper.SetDefault(keyDownloadRetries, download.DefaultRetries)
	viper.SetDefault(keyDownloadTimeout, httputil.DefaultTimeout)
	viper.SetDefault(keyUserAgent, httputil.DefaultUserAgent)
	viper.SetDefault(keyConvertTimeout, convert.DefaultTimeout)
	viper.SetDefault(keyDepsFile, "")
	viper.SetDefault(keyPythonBin, "python3")
	viper.SetDefault(keyPythonPackages, types.DefaultPythonPackages)
	viper.SetDefault(keyPythonSkip, []string{"PyGObject"})
}

func resolveLayout() (types.Layout, error) {
	root, err := filepath.Abs(viper.GetString(keyRoot))
	if err != nil {
		return types.Layout{}, fmt.Errorf("resolving install root: %w", err)
	}
	l := types.NewLayout(root)
	if b := viper.GetString(keyToolBinary); b != "" {
		l.BinaryName = b
	}
	return l, nil
}

func provisionConfig() (types.ProvisionConfig, error) {
	l, err := resolveLayout()
	if err != nil {
		return types.ProvisionConfig{}, err
	}
	return types.ProvisionConfig{
		Layout: l,
		Download: types.DownloadConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration(keyDownloadTimeout),
				UserAgent: viper.GetString(keyUserAgent),
			},
			URL:        viper.GetString(keyToolURL),
			MaxRetries: viper.GetInt(keyDownloadRetries),
		},
		Python: types.PythonConfig{
			Interpreter: viper.GetString(keyPythonBin),
			Packages:    viper.GetStringSlice(keyPythonPackages),
			Skip:        viper.GetStringSlice(keyPythonSkip),
		},
		DepsFile: viper.GetString(keyDepsFile),
	}, nil
}

func conversionConfig() (types.ConversionConfig, error) {
	l, err := resolveLayout()
	if err != nil {
		return types.ConversionConfig{}, err
	}
	return types.ConversionConfig{Layout: l, Timeout: viper.GetDuration(keyConvertTimeout)}, nil
}

// dependencySet returns the configured dependency list, or the built-in one.
func dependencySet(cfg types.ProvisionConfig) (deps.Set, error) {
	if cfg.DepsFile != "" {
		return deps.LoadSet(cfg.DepsFile)
	}
	return deps.DefaultSet()
}
