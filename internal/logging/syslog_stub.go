//go:build windows || plan9

package logging

import (
	"io"

	"github.com/momentics/hioload-gate/api"
)

func newSyslogSink(string) (io.Writer, error) {
	return nil, api.ErrNotSupported
}
