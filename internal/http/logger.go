package http

import (
	"fmt"

	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

// leveledLogger routes retryablehttp's internal logging to freepbx.Logger.
// Its per-attempt debug chatter is only forwarded in debug mode.
type leveledLogger struct {
	logger freepbx.Logger
	debug  bool
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	// Failed attempts may still succeed on retry; the caller reports the
	// final error.
	l.logger.Warn(msg, fields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Info(msg, fields(keysAndValues))
	}
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Debug(msg, fields(keysAndValues))
	}
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		out[key] = keysAndValues[i+1]
	}

	return out
}
