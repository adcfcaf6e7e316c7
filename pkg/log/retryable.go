package log

import (
	"github.com/hashicorp/go-retryablehttp"
)

type retryableLogger struct {
	log Logger
}

// NewRetryableLogger lets go-retryablehttp report attempts and backoffs through zerolog.
func NewRetryableLogger(log Logger) retryablehttp.LeveledLogger {
	return retryableLogger{log: log}
}

func (r retryableLogger) Error(msg string, keysAndValues ...interface{}) {
	r.log.Error().Str("component", "http").Fields(keysAndValues).Msg(msg)
}

func (r retryableLogger) Info(msg string, keysAndValues ...interface{}) {
	r.log.Info().Str("component", "http").Fields(keysAndValues).Msg(msg)
}

// retryablehttp logs every request at debug, keep it there.
func (r retryableLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.log.Debug().Str("component", "http").Fields(keysAndValues).Msg(msg)
}

func (r retryableLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.log.Warn().Str("component", "http").Fields(keysAndValues).Msg(msg)
}
