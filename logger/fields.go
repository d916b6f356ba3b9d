package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across Foundry.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID    = "run_id"
	FieldPipeline = "pipeline"
	FieldStage    = "stage"

	// Components
	FieldComponent  = "component"
	FieldOperator   = "operator"
	FieldOperatorID = "operator_id"
	FieldKind       = "kind"

	// Data flow
	FieldSource    = "source"
	FieldMode      = "mode"
	FieldRows      = "rows"
	FieldPartition = "partition"
	FieldShard     = "shard"
	FieldBatchSize = "batch_size"
	FieldWeight    = "weight"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldStartTime  = "start_time"
	FieldEndTime    = "end_time"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Files and paths
	FieldPath = "path"
	FieldFile = "file"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"
)

// Context keys for propagating logging context
type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	pipelineKey  contextKey = "logger_pipeline"
	stageKey     contextKey = "logger_stage"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithPipeline adds a pipeline name to the context for logging
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	return context.WithValue(ctx, pipelineKey, pipeline)
}

// WithStage adds a stage name to the context for logging
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if pipeline, ok := ctx.Value(pipelineKey).(string); ok && pipeline != "" {
		fields = append(fields, FieldPipeline, pipeline)
	}
	if stage, ok := ctx.Value(stageKey).(string); ok && stage != "" {
		fields = append(fields, FieldStage, stage)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
// Use this to get a logger that automatically includes run_id, stage, etc.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Runner struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewRunner() *Runner {
//	    return &Runner{
//	        logger: logger.ComponentLogger("runtime.runner"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
//
// Example:
//
//	stageLogger := logger.ChildLogger(baseLogger, "stage", stage.Name)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
