package errorsdk

import (
	"github.com/rs/zerolog"
)

// RequestLogger is the interface used by [Client] for logging attempts, retries
// and terminal failures. It has the same shape as the resty logger and is also
// handed to the underlying HTTP client. Supply an implementation via
// [WithRequestLogger].
type RequestLogger interface {
	Errorf(format string, v ...any)
	Warnf(format string, v ...any)
	Debugf(format string, v ...any)
}

// NoopLogger is a [RequestLogger] that silently discards all log messages.
// It is the default logger used when no logger is provided to [New].
type NoopLogger struct{}

func (l *NoopLogger) Errorf(_ string, _ ...any) {}
func (l *NoopLogger) Warnf(_ string, _ ...any)  {}
func (l *NoopLogger) Debugf(_ string, _ ...any) {}

// ZerologLogger adapts a zerolog.Logger to [RequestLogger].
type ZerologLogger struct {
	zlog zerolog.Logger
}

var _ RequestLogger = (*ZerologLogger)(nil)

// NewZerologLogger tags every entry with component=errorsdk.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zlog: l.With().Str("component", "errorsdk").Logger()}
}

func (l *ZerologLogger) Errorf(format string, v ...any) {
	l.zlog.Error().Msgf(format, v...)
}

func (l *ZerologLogger) Warnf(format string, v ...any) {
	l.zlog.Warn().Msgf(format, v...)
}

func (l *ZerologLogger) Debugf(format string, v ...any) {
	l.zlog.Debug().Msgf(format, v...)
}
