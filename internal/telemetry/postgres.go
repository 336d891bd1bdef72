package telemetry

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/tracelog"
)

// PostgresTracer logs pgx queries through slog. Queries are logged at debug level, failures at error.
func PostgresTracer() *tracelog.TraceLog {
	return &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(pgxLog),
		LogLevel: tracelog.LogLevelDebug,
	}
}

func pgxLog(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	attrs := make([]any, 0, 2*len(data))
	for k, v := range data {
		if k == "args" {
			continue
		}
		attrs = append(attrs, k, v)
	}

	slog.Log(ctx, pgxLevel(level), "postgres: "+msg, attrs...)
}

func pgxLevel(level tracelog.LogLevel) slog.Level {
	switch level {
	case tracelog.LogLevelError:
		return slog.LevelError
	case tracelog.LogLevelWarn:
		return slog.LevelWarn
	case tracelog.LogLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
