// Package obslog wraps zap for the structured, leveled logging every
// module/broker process emits, the way the logistics-platform example's
// shared logger package does for its own services.
package obslog

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mobility-cosim/platform/config"
)

// Logger wraps a zap SugaredLogger so call sites can attach run/module
// identity without repeating field names at every call.
type Logger struct {
	*zap.SugaredLogger
}

type ctxKey struct{}

// New builds a Logger configured from a LogConfig, tagging every line with
// the owning service name.
func New(cfg config.LogConfig) (*Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	switch cfg.Level {
	case "debug":
		zcfg.Level.SetLevel(zapcore.DebugLevel)
	case "warn":
		zcfg.Level.SetLevel(zapcore.WarnLevel)
	case "error":
		zcfg.Level.SetLevel(zapcore.ErrorLevel)
	default:
		zcfg.Level.SetLevel(zapcore.InfoLevel)
	}

	zcfg.OutputPaths = []string{"stdout"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := zcfg.Build(
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}
	return &Logger{zl.Sugar()}, nil
}

// Default returns a development-mode logger, used by tests and tools that
// don't go through config.Load.
func Default(serviceName string) *Logger {
	l, err := New(config.LogConfig{ServiceName: serviceName, Level: "debug", Environment: "development"})
	if err != nil {
		zl, _ := zap.NewDevelopment()
		return &Logger{zl.Sugar()}
	}
	return l
}

// WithRun tags every subsequent line with the run this process is serving.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{l.SugaredLogger.With("run_id", runID)}
}

// WithFields attaches arbitrary key/value pairs.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{l.SugaredLogger.With(args...)}
}

// WithError attaches an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{l.SugaredLogger.With("error", err.Error())}
}

// Sync flushes buffered log entries; call before process exit.
func (l *Logger) Sync() error { return l.SugaredLogger.Sync() }

// ToContext stashes a Logger on ctx so handlers deep in a call chain can
// recover the request-scoped logger without threading it through signatures.
func ToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext recovers a Logger stashed by ToContext, falling back to a
// fresh development logger if none was stashed.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default("unknown")
}
