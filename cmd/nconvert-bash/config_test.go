package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/nconvert-bash/pkg/types"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults()
	viper.SetEnvPrefix("NCONVERT_BASH")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	t.Cleanup(viper.Reset)
}

func TestProvisionConfigDefaults(t *testing.T) {
	resetViper(t)
	root := t.TempDir()
	viper.Set(keyRoot, root)

	cfg, err := provisionConfig()
	require.NoError(t, err)
	assert.Equal(t, types.NewLayout(root), cfg.Layout)
	assert.Equal(t, types.DefaultToolURL, cfg.Download.URL)
	assert.Equal(t, 3, cfg.Download.MaxRetries)
	assert.Equal(t, types.DefaultPythonPackages, cfg.Python.Packages)
	assert.Equal(t, []string{"PyGObject"}, cfg.Python.Skip)
	assert.Equal(t, filepath.Join(root, "data", "NConvert-linux64", "nconvert"), cfg.Layout.ConverterPath())
}

func TestConfigFromEnvironment(t *testing.T) {
	resetViper(t)
	root := t.TempDir()
	t.Setenv("NCONVERT_BASH_ROOT", root)
	t.Setenv("NCONVERT_BASH_TOOL_URL", "http://mirror.local/nc.tgz")
	t.Setenv("NCONVERT_BASH_CONVERT_TIMEOUT", "45s")

	pc, err := provisionConfig()
	require.NoError(t, err)
	assert.Equal(t, root, pc.Layout.Root)
	assert.Equal(t, "http://mirror.local/nc.tgz", pc.Download.URL)

	cc, err := conversionConfig()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cc.Timeout)
}

func TestDependencySet(t *testing.T) {
	set, err := dependencySet(types.ProvisionConfig{})
	require.NoError(t, err)
	assert.Contains(t, set.Names(), "tar")

	_, err = dependencySet(types.ProvisionConfig{DepsFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
