// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deps

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pdiddy/nconvert-bash/internal/command"
)

// Status is the verdict of probing one dependency.
type Status int

const (
	Missing Status = iota
	Present
)

func (s Status) String() string {
	if s == Present {
		return "present"
	}
	return "missing"
}

// Probe runs spec's detection procedure. A nil detector, a panic-free
// failure, a timeout, or a missing binary all yield Missing.
func Probe(ctx context.Context, exec command.Executor, spec Spec) Status {
	if spec.Detect == nil {
		return Missing
	}
	if spec.Detect.Detect(ctx, exec) {
		return Present
	}
	return Missing
}

// ProbeResult aggregates the verdicts of a full probe.
type ProbeResult struct {
	// Verdicts holds the status of every dependency in the set.
	Verdicts map[string]Status

	// Missing is the sorted, de-duplicated union of packages from every
	// missing dependency.
	Missing []string
}

// AllPresent reports whether nothing needs installing.
func (r ProbeResult) AllPresent() bool {
	return len(r.Missing) == 0
}

// ProbeAll probes every dependency in set without short-circuiting and
// writes one line per dependency to w in name order.
func ProbeAll(ctx context.Context, exec command.Executor, set Set, w io.Writer) ProbeResult {
	res := ProbeResult{Verdicts: make(map[string]Status, len(set))}
	missing := map[string]bool{}

	for _, name := range set.Names() {
		spec := set[name]
		status := Probe(ctx, exec, spec)
		res.Verdicts[name] = status
		if status == Present {
			fmt.Fprintf(w, "✓ %s is available\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s not found (will install: %s)\n", name, strings.Join(spec.Packages, ", "))
		for _, p := range spec.Packages {
			missing[p] = true
		}
	}

	for p := range missing {
		res.Missing = append(res.Missing, p)
	}
	sort.Strings(res.Missing)
	return res
}
