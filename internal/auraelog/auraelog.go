// Package auraelog is the structured logging wrapper shared across the
// daemon, built on logrus.
package auraelog

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aurae-runtime/auraed/internal/logstream"
)

// Ctx is a set of structured fields attached to a log line.
type Ctx map[string]any

var base = logrus.New()

// daemonLog fans every formatted log line out to ObserveService's
// GetAuraeDaemonLogStream subscribers, via a logrus.Hook the way
// canonical-lxd/shared/logger wires its own sinks.
var daemonLog = logstream.New("auraed")

type broadcastHook struct{}

func (broadcastHook) Levels() []logrus.Level { return logrus.AllLevels }

func (broadcastHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	daemonLog.Publish(line)

	return nil
}

func init() {
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.InfoLevel)
	base.AddHook(broadcastHook{})
}

// DaemonLog returns the broadcast channel carrying this daemon's own
// log lines, subscribed to by ObserveService.GetAuraeDaemonLogStream.
func DaemonLog() *logstream.LogChannel {
	return daemonLog
}

// SetVerbose raises the logger to debug level, as set by --verbose.
func SetVerbose(verbose bool) {
	if verbose {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
}

// AddContext returns a logger carrying the given fields on every line.
func AddContext(ctx Ctx) *logrus.Entry {
	return base.WithFields(logrus.Fields(ctx))
}

// L returns the base logger entry with no fields attached.
func L() *logrus.Entry {
	return logrus.NewEntry(base)
}

// Debug logs at debug level with optional context.
func Debug(msg string, ctx ...Ctx) {
	entry(ctx).Debug(msg)
}

// Info logs at info level with optional context.
func Info(msg string, ctx ...Ctx) {
	entry(ctx).Info(msg)
}

// Warn logs at warn level with optional context.
func Warn(msg string, ctx ...Ctx) {
	entry(ctx).Warn(msg)
}

// Error logs at error level with optional context.
func Error(msg string, ctx ...Ctx) {
	entry(ctx).Error(msg)
}

func entry(ctx []Ctx) *logrus.Entry {
	if len(ctx) == 0 {
		return L()
	}

	return AddContext(ctx[0])
}
