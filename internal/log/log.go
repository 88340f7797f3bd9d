// Package log is a thin structured logging layer over logrus.
//
// Calls take an optional leading context.Context, a message, then
// key/value pairs:
//
//	log.Debug(ctx, "Dispatching request", "method", "GET", "url", u)
//
// An error in key position is logged under the "error" key.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var defaultLogger = logrus.New()

type contextKey struct{}

// NewContext returns a copy of ctx whose log calls carry keyValuePairs.
func NewContext(ctx context.Context, keyValuePairs ...interface{}) context.Context {
	fields := logrus.Fields{}
	if prev, ok := ctx.Value(contextKey{}).(logrus.Fields); ok {
		for k, v := range prev {
			fields[k] = v
		}
	}
	addFields(fields, keyValuePairs)
	return context.WithValue(ctx, contextKey{}, fields)
}

func SetLevel(level string) error {
	l, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	defaultLogger.SetLevel(l)
	return nil
}

func CurrentLevel() string {
	return defaultLogger.GetLevel().String()
}

func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

func IsDebug() bool {
	return defaultLogger.IsLevelEnabled(logrus.DebugLevel)
}

func Error(args ...interface{}) { log(logrus.ErrorLevel, args) }
func Warn(args ...interface{})  { log(logrus.WarnLevel, args) }
func Info(args ...interface{})  { log(logrus.InfoLevel, args) }
func Debug(args ...interface{}) { log(logrus.DebugLevel, args) }
func Trace(args ...interface{}) { log(logrus.TraceLevel, args) }

func log(level logrus.Level, args []interface{}) {
	if !defaultLogger.IsLevelEnabled(level) {
		return
	}
	entry, msg := parseArgs(args)
	entry.Log(level, msg)
}

func parseArgs(args []interface{}) (*logrus.Entry, string) {
	entry := logrus.NewEntry(defaultLogger)
	if len(args) == 0 {
		return entry, ""
	}
	if ctx, ok := args[0].(context.Context); ok {
		if fields, ok := ctx.Value(contextKey{}).(logrus.Fields); ok {
			entry = entry.WithFields(fields)
		}
		args = args[1:]
	}
	if len(args) == 0 {
		return entry, ""
	}
	fields := logrus.Fields{}
	addFields(fields, args[1:])
	return entry.WithFields(fields), fmt.Sprint(args[0])
}

func addFields(fields logrus.Fields, kvs []interface{}) {
	for i := 0; i < len(kvs); i++ {
		if err, ok := kvs[i].(error); ok {
			fields[logrus.ErrorKey] = err
			continue
		}
		if i+1 == len(kvs) {
			fields["_extra"] = kvs[i]
			break
		}
		fields[fmt.Sprint(kvs[i])] = kvs[i+1]
		i++
	}
}
