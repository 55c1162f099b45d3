// Package observability configures the process-wide structured logger.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const loggerName = "cursorkeep"

// Instrument installs the default slog logger for the given level and
// format.
//
// Formats "text" and "json" log to stderr. Format "otlp" routes records
// through the OpenTelemetry log SDK to an OTLP/HTTP collector configured
// via the standard OTEL_EXPORTER_* environment; "otel-stdout" uses the
// stdout exporter instead, for inspecting the same pipeline locally.
func Instrument(level slog.Level, format string) error {
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case "otlp", "otel-stdout":
		exporter, err := newExporter(context.Background(), format)
		if err != nil {
			return fmt.Errorf("creating log exporter: %w", err)
		}
		processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
		provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
		slog.SetDefault(otelslog.NewLogger(loggerName, otelslog.WithLoggerProvider(provider)))
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}
	return nil
}

func newExporter(ctx context.Context, format string) (sdklog.Exporter, error) {
	if format == "otlp" {
		return otlploghttp.New(ctx)
	}
	return stdoutlog.New(stdoutlog.WithPrettyPrint())
}

// severity maps a slog level to the minimum OTel severity to emit.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}
