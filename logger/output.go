package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints, final status
//	1 (-v)      - + Progress, stage summaries, cache hits, run totals
//	2 (-vv)     - + Operator timing, config loaded, source statistics
//	3 (-vvv)    - + Per-partition detail, SQL queries, remote fetches
//	4 (-vvvv)   - + Full row dumps and spec dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Run results, command output
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress    // Progress indicators (e.g., "partition 5/12")
	OutputStartup     // Startup banners, spec summary
	OutputCacheStatus // Stage cache hits and skips
	OutputStageInfo   // High-level stage summaries

	// Level 2 (-vv) - Detailed
	OutputTiming      // Operation timing (e.g., "stage took 42ms")
	OutputConfig      // Config values loaded/applied
	OutputSourceStats // Source row counts and mixture draws
	OutputOperators   // Operator resolution and versions

	// Level 3 (-vvv) - Debug
	OutputPartitionDetail // Per-partition row counts and shard paths
	OutputSQLQueries      // Individual SQL queries executed
	OutputFetches         // Remote dataset fetches (URLs, checksums)
	OutputInternalOp      // Internal operation flow

	// Level 4 (-vvvv) - Full dump
	OutputRowDump  // Full row contents
	OutputSpecDump // Full resolved spec dumps
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	// Level 0 - Always shown
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	// Level 1 - Informational
	OutputProgress:    VerbosityInfo,
	OutputStartup:     VerbosityInfo,
	OutputCacheStatus: VerbosityInfo,
	OutputStageInfo:   VerbosityInfo,

	// Level 2 - Detailed
	OutputTiming:      VerbosityDebug,
	OutputConfig:      VerbosityDebug,
	OutputSourceStats: VerbosityDebug,
	OutputOperators:   VerbosityDebug,

	// Level 3 - Debug
	OutputPartitionDetail: VerbosityTrace,
	OutputSQLQueries:      VerbosityTrace,
	OutputFetches:         VerbosityTrace,
	OutputInternalOp:      VerbosityTrace,

	// Level 4 - Full dump
	OutputRowDump:  VerbosityAll,
	OutputSpecDump: VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		// Unknown category, default to highest verbosity required
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:         "results",
	OutputErrors:          "errors",
	OutputUserStatus:      "status",
	OutputProgress:        "progress",
	OutputStartup:         "startup",
	OutputCacheStatus:     "cache-status",
	OutputStageInfo:       "stage-info",
	OutputTiming:          "timing",
	OutputConfig:          "config",
	OutputSourceStats:     "source-stats",
	OutputOperators:       "operators",
	OutputPartitionDetail: "partition-detail",
	OutputSQLQueries:      "sql",
	OutputFetches:         "fetches",
	OutputInternalOp:      "internal",
	OutputRowDump:         "row-dump",
	OutputSpecDump:        "spec-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, and stage summaries"
	case VerbosityDebug:
		return "above + timing, config, and source statistics"
	case VerbosityTrace:
		return "above + partition detail, SQL, and fetches"
	case VerbosityAll:
		return "full output including row dumps"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}
