package contextkeys

import (
	"context"
	"listing-service/internal/core/port"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// ContextWithLogger помещает логгер в контекст
func ContextWithLogger(ctx context.Context, logger port.LoggerPort) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext извлекает логгер из контекста. Если логгера нет, возвращает заглушку.
func LoggerFromContext(ctx context.Context) port.LoggerPort {
	if logger, ok := ctx.Value(loggerKey).(port.LoggerPort); ok {
		return logger
	}
	return NoopLogger()
}

// NoopLogger - логгер, который ничего не делает
func NoopLogger() port.LoggerPort { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Info(msg string, fields port.Fields)             {}
func (noopLogger) Warn(msg string, fields port.Fields)             {}
func (noopLogger) Error(msg string, err error, fields port.Fields) {}
func (noopLogger) Debug(msg string, fields port.Fields)            {}
func (n noopLogger) WithFields(fields port.Fields) port.LoggerPort { return n }
