// Package bmlog centralizes the node's structured logging, following the
// facebook/time daemons' convention of a package-level logrus logger
// imported as `log`.
package bmlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-wide logger. Callers reach for bmlog.Log the way the
// teacher lineage reaches for a package-level `log` alias.
var Log = logrus.New()

func init() {
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Log.SetLevel(logrus.InfoLevel)
}

// SetDebug switches the logger to DEBUG level, enabling per-message
// tracing.
func SetDebug(enabled bool) {
	if enabled {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

// WithPeer returns a logger entry tagged with the remote peer's label, the
// idiom used throughout internal/peer for per-connection log lines.
func WithPeer(label string) *logrus.Entry {
	return Log.WithField("peer", label)
}
