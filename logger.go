package join

import "github.com/rs/zerolog"

// Logger handles structured logging for the framework components.
type Logger interface {
	Print(v ...any)                 // Info level
	Printf(format string, v ...any) // Info level formatted
	Infof(format string, v ...any)  // Info level with formatting
	Warnf(format string, v ...any)  // Warning level
	Errorf(format string, v ...any) // Error level
}

// NoopLogger provides a default no-op logger.
type NoopLogger struct{}

func (l *NoopLogger) Print(_ ...any)            {}
func (l *NoopLogger) Printf(_ string, _ ...any) {}
func (l *NoopLogger) Infof(_ string, _ ...any)  {}
func (l *NoopLogger) Warnf(_ string, _ ...any)  {}
func (l *NoopLogger) Errorf(_ string, _ ...any) {}

// zerologAdapter bridges a zerolog.Logger to the Logger interface.
type zerologAdapter struct {
	l zerolog.Logger
}

// NewZerologAdapter wraps a zerolog.Logger so it satisfies Logger.
func NewZerologAdapter(l zerolog.Logger) Logger {
	return &zerologAdapter{l: l}
}

func (a *zerologAdapter) Print(v ...any) {
	a.l.Info().Msgf("%v", v...)
}

func (a *zerologAdapter) Printf(format string, v ...any) {
	a.l.Info().Msgf(format, v...)
}

func (a *zerologAdapter) Infof(format string, v ...any) {
	a.l.Info().Msgf(format, v...)
}

func (a *zerologAdapter) Warnf(format string, v ...any) {
	a.l.Warn().Msgf(format, v...)
}

func (a *zerologAdapter) Errorf(format string, v ...any) {
	a.l.Error().Msgf(format, v...)
}
