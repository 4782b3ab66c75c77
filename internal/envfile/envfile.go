// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package envfile loads KEY=value settings from dotenv files into the
// process environment, where the configuration layer picks them up.
package envfile

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// DefaultFiles are read in order; later files take precedence.
var DefaultFiles = []string{".env", ".env.local"}

// Load reads each file in order, later files overriding earlier ones, and
// exports every key that is not already set in the environment. Missing
// files are skipped. It returns the sorted names of the keys it exported.
func Load(files ...string) ([]string, error) {
	merged := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		for k, v := range vals {
			merged[k] = v
		}
	}

	var set []string
	for k, v := range merged {
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return nil, fmt.Errorf("setting %s: %w", k, err)
		}
		set = append(set, k)
	}
	sort.Strings(set)
	return set, nil
}
