// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deps

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed default_deps.yaml
var defaultDeps []byte

// specFile is the on-disk shape of a dependency set.
type specFile struct {
	Dependencies map[string]specEntry `yaml:"dependencies"`
}

type specEntry struct {
	Packages []string `yaml:"packages"`
	Test     []string `yaml:"test"`
	Expect   string   `yaml:"expect"`
	Dpkg     string   `yaml:"dpkg"`
	List     bool     `yaml:"list"`
}

// DefaultSet returns the built-in dependency set.
func DefaultSet() (Set, error) {
	s, err := ParseSet(defaultDeps)
	if err != nil {
		return nil, fmt.Errorf("parsing built-in dependency set: %w", err)
	}
	return s, nil
}

// LoadSet reads a dependency set from a YAML file.
func LoadSet(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dependency set %s: %w", path, err)
	}
	s, err := ParseSet(data)
	if err != nil {
		return nil, fmt.Errorf("parsing dependency set %s: %w", path, err)
	}
	return s, nil
}

// ParseSet decodes a YAML dependency set. Every entry must list at least one
// package and exactly one detection method.
func ParseSet(data []byte) (Set, error) {
	var f specFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Dependencies) == 0 {
		return nil, fmt.Errorf("no dependencies declared")
	}

	set := make(Set, len(f.Dependencies))
	for name, e := range f.Dependencies {
		if len(e.Packages) == 0 {
			return nil, fmt.Errorf("dependency %q: no packages listed", name)
		}
		det, err := e.detector()
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		set[name] = Spec{Name: name, Packages: e.Packages, Detect: det}
	}
	return set, nil
}

func (e specEntry) detector() (Detector, error) {
	switch {
	case len(e.Test) > 0 && e.Dpkg != "":
		return nil, fmt.Errorf("both test and dpkg given")
	case len(e.Test) > 0 && e.Expect != "":
		return OutputDetector{Argv: e.Test, Contains: e.Expect}, nil
	case len(e.Test) > 0:
		return CommandDetector{Argv: e.Test}, nil
	case e.Dpkg != "":
		return DpkgDetector{Package: e.Dpkg, List: e.List}, nil
	default:
		return nil, fmt.Errorf("no detection method (test or dpkg)")
	}
}
