// Package rhmaplog wraps aristanetworks/glog the way the surrounding pack's
// cmd/* binaries do, giving rhmap a single place to route resize-transition
// tracing through.
package rhmaplog

import "github.com/aristanetworks/glog"

// Infof logs a verbose-level trace line, gated the same way
// glog.V(level).Infof is everywhere else in the pack (state transitions are
// logged at V(1)).
func Infof(level int32, format string, args ...interface{}) {
	glog.V(glog.Level(level)).Infof(format, args...)
}
