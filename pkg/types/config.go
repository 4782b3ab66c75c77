package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// DownloadConfig holds settings for fetching the converter archive.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the remote location of the converter archive.
	URL string `json:"url" yaml:"url"`

	// MaxRetries is the number of attempts before a download is abandoned (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PythonConfig holds settings for the isolated runtime environment.
type PythonConfig struct {
	// Interpreter is the system interpreter used to create the environment.
	Interpreter string `json:"interpreter" yaml:"interpreter"`

	// Packages lists pip requirement specifiers installed into the environment.
	// Entries may pin a version with "name==version".
	Packages []string `json:"packages" yaml:"packages"`

	// Skip lists package names that are provided by the system instead of pip.
	Skip []string `json:"skip" yaml:"skip"`

	// Attempts is the number of install attempts per package (default 3).
	Attempts int `json:"attempts" yaml:"attempts"`
}

// ProvisionConfig groups everything the installer needs.
type ProvisionConfig struct {
	Layout   Layout         `json:"layout" yaml:"layout"`
	Download DownloadConfig `json:"download" yaml:"download"`
	Python   PythonConfig   `json:"python" yaml:"python"`

	// DepsFile optionally points at a YAML dependency set replacing the built-in one.
	DepsFile string `json:"deps_file,omitempty" yaml:"deps_file,omitempty"`
}

// ConversionConfig holds settings for the batch conversion stage.
type ConversionConfig struct {
	Layout Layout `json:"layout" yaml:"layout"`

	// Timeout bounds a single converter invocation (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultPythonPackages are the requirements installed into a fresh environment.
var DefaultPythonPackages = []string{
	"gradio",
	"pandas==2.1.3",
	"numpy==1.26.0",
	"psutil==6.1.1",
	"tk",
	"PyGObject",
}

// DefaultToolURL is the upstream location of the Linux NConvert archive.
const DefaultToolURL = "https://download.xnview.com/NConvert-linux64.tgz"
