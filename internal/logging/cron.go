package logging

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

type cronLogger struct {
	logger *slog.Logger
}

// Cron adapts logger to the scheduler's logging interface. Routine scheduler
// chatter is logged at debug level.
func Cron(logger *slog.Logger) cron.Logger {
	return cronLogger{logger: logger.With(slog.String("component", "cron"))}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
