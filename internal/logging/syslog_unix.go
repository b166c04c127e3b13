//go:build !windows && !plan9

package logging

import (
	"io"
	"log/syslog"

	"github.com/rs/zerolog"
)

// newSyslogSink connects to the local syslog daemon with the daemon facility.
// Record levels are mapped onto syslog priorities by zerolog.
func newSyslogSink(tag string) (io.Writer, error) {
	w, err := syslog.New(syslog.LOG_NOTICE|syslog.LOG_DAEMON, tag)
	if err != nil {
		return nil, err
	}
	return zerolog.SyslogLevelWriter(w), nil
}
