package utils

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// ConfigureLogger sets level and format ("json" or "text") of the standard logrus logger.
func ConfigureLogger(level, format string) *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetOutput(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// ContextWithLogger attaches a request-scoped entry to ctx.
func ContextWithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// LoggerFromContext returns the entry carried by ctx, or the standard logger.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok && entry != nil {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// LogEventCtx prints a module/action line on the request-scoped logger.
// Keep message a summary, never a payload.
func LogEventCtx(ctx context.Context, module, action, message string) {
	LoggerFromContext(ctx).WithFields(logrus.Fields{
		"module": strings.ToLower(module),
		"action": action,
	}).Info(message)
}
