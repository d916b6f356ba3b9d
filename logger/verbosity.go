package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control WHAT categories of output are shown, not just log severity.
// See output.go for the full category system.
//
// Example usage:
//
//	if logger.ShouldOutput(verbosity, logger.OutputPartitionDetail) {
//	    fmt.Printf("[partition %d] %d rows\n", idx, rows)
//	}
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + progress, stage summaries, cache status
	VerbosityDebug = 2 // -vv: + operator timing, config details, source stats
	VerbosityTrace = 3 // -vvv: + per-partition detail, SQL, fetch requests
	VerbosityAll   = 4 // -vvvv: + full row dumps
)

// VerbosityToLevel maps -v flag counts to zap levels. Everything past -vv is
// still DebugLevel as far as zap is concerned; the extra flag counts gate
// output categories, not severity.
func VerbosityToLevel(verbosity int) zapcore.Level {
	if verbosity <= VerbosityUser {
		return zapcore.WarnLevel
	}
	if verbosity == VerbosityInfo {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}
