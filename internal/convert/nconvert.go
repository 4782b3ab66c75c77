// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/nconvert-bash/internal/command"
	"github.com/pdiddy/nconvert-bash/pkg/types"
)

// DefaultTimeout bounds one converter invocation.
const DefaultTimeout = 30 * time.Second

// ErrTimedOut is wrapped into the error of a conversion that was killed.
var ErrTimedOut = errors.New("timed out")

// NConvertConverter invokes the NConvert command-line tool.
type NConvertConverter struct {
	exec    command.Executor
	bin     string
	timeout time.Duration
}

// NewNConvertConverter returns a converter running bin through exec. A zero
// timeout selects DefaultTimeout.
func NewNConvertConverter(exec command.Executor, bin string, timeout time.Duration) *NConvertConverter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NConvertConverter{exec: exec, bin: bin, timeout: timeout}
}

// Convert runs `<bin> -out <fmt> -overwrite -o <output> <input>`. A non-zero
// exit reports the tool's stderr as the error.
func (n *NConvertConverter) Convert(ctx context.Context, input, output string, target types.Format) error {
	res := n.exec.Run(ctx, command.Cmd{
		Name:    n.bin,
		Args:    []string{"-out", target.ConverterName(), "-overwrite", "-o", output, input},
		Timeout: n.timeout,
	})
	if res.TimedOut {
		return fmt.Errorf("%w after %s", ErrTimedOut, n.timeout)
	}
	if !res.OK() {
		return errors.New(res.ErrorText())
	}
	return nil
}
