package extensions

import (
	"context"
	"log/slog"
	"time"

	pumped "github.com/pumped-fn/pumped-runtime"
)

// LoggingExtension logs every wrapped operation and flow lifecycle event
// through slog, at a configurable level.
type LoggingExtension struct {
	pumped.BaseExtension
	logger *slog.Logger
	level  slog.Level
}

// LoggingOption configures a LoggingExtension.
type LoggingOption func(*LoggingExtension)

func WithLogger(logger *slog.Logger) LoggingOption {
	return func(e *LoggingExtension) { e.logger = logger }
}

func WithLevel(level slog.Level) LoggingOption {
	return func(e *LoggingExtension) { e.level = level }
}

// NewLoggingExtension creates a logging extension. Without WithLogger it
// logs through slog.Default.
func NewLoggingExtension(opts ...LoggingOption) *LoggingExtension {
	e := &LoggingExtension{
		BaseExtension: pumped.NewBaseExtension("logging"),
		logger:        slog.Default(),
		level:         slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *pumped.Operation) (any, error) {
	start := time.Now()
	attrs := []any{slog.String("op", string(op.Kind))}
	if op.Executor != nil {
		attrs = append(attrs, slog.String("executor", op.Executor.Name()))
	}
	if op.FlowName != "" {
		attrs = append(attrs, slog.String("flow", op.FlowName))
	}
	if op.JournalKey != "" {
		attrs = append(attrs, slog.String("journal_key", op.JournalKey))
	}
	e.logger.Log(ctx, e.level, "operation starting", attrs...)

	result, err := next()

	duration := time.Since(start)
	attrs = append(attrs, slog.Duration("duration", duration))
	if err != nil {
		e.logger.Log(ctx, slog.LevelError, "operation failed", append(attrs, slog.String("error", err.Error()))...)
	} else {
		e.logger.Log(ctx, e.level, "operation completed", attrs...)
	}

	return result, err
}

func (e *LoggingExtension) OnError(err error, op *pumped.Operation) {
	e.logger.Error("unhandled error", slog.String("op", string(op.Kind)), slog.String("error", err.Error()))
}

func (e *LoggingExtension) OnCleanupError(err *pumped.CleanupError) bool {
	e.logger.Error("cleanup failed", slog.String("executor", err.ExecutorID.Name()), slog.String("error", err.Err.Error()))
	return false
}

func (e *LoggingExtension) OnFlowStart(execCtx *pumped.ExecutionCtx, flow pumped.AnyFlow) error {
	e.logger.Log(execCtx.Context(), e.level, "flow starting", slog.String("flow", flow.Name()))
	return nil
}

func (e *LoggingExtension) OnFlowEnd(execCtx *pumped.ExecutionCtx, result any, err error) error {
	if err != nil {
		e.logger.Log(execCtx.Context(), slog.LevelError, "flow failed", slog.String("error", err.Error()))
	} else {
		e.logger.Log(execCtx.Context(), e.level, "flow completed")
	}
	return nil
}

func (e *LoggingExtension) OnFlowPanic(execCtx *pumped.ExecutionCtx, recovered any, stack []byte) error {
	e.logger.Error("flow panicked", slog.Any("recovered", recovered))
	return nil
}
