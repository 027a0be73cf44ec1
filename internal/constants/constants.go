// Package constants provides named constants used throughout the simverify codebase.
// This centralizes magic numbers and fixed artifact names.
package constants

import "time"

// Verdict thresholds
const (
	// DefaultPassThreshold is the minimum pass rate for the partial-success tier.
	// Runs at or above this fraction of passing artifacts still exit 0.
	DefaultPassThreshold = 0.7

	// HitRatioTolerance is the absolute tolerance between a reported cache hit
	// ratio and the one recomputed from hits and misses.
	HitRatioTolerance = 0.01

	// IntegrationMinSubsystems is the number of subsystem keywords an
	// integration report needs for the "subsystems verified" message.
	IntegrationMinSubsystems = 2
)

// Results directory defaults
const (
	// DefaultResultsDir is the directory the simulator writes its reports into.
	DefaultResultsDir = "results"

	// StateDirName is the per-user directory holding config, history and traces.
	StateDirName = ".simverify"

	// ConfigFileName is the config file inside StateDirName.
	ConfigFileName = "config.yaml"

	// HistoryDBName is the SQLite database file inside the history directory.
	HistoryDBName = "history.db"

	// VerdictLogName is the JSONL verdict trace written at debug level.
	VerdictLogName = "verdicts.jsonl"

	// MaxArtifactSize caps how much of a single report is read (16MB).
	MaxArtifactSize = 16 * 1024 * 1024
)

// Artifact file names produced by the simulator test suite.
const (
	SeqAllocArtifact            = "seq_alloc_result.txt"
	FragmentationArtifact       = "fragmentation_result.txt"
	CacheHitArtifact            = "cache_hit_result.txt"
	LRUArtifact                 = "lru_result.txt"
	MultilevelCacheArtifact     = "multilevel_cache_result.txt"
	TranslationArtifact         = "translation_result.txt"
	PageFaultArtifact           = "page_fault_result.txt"
	IntegrationArtifact         = "integration_result.txt"
	AllocatorComparisonArtifact = "allocator_comparison_result.txt"
	StressAllocationArtifact    = "stress_allocation_result.txt"
	AllocationFailureArtifact   = "allocation_failure_result.txt"
)

// Console layout
const (
	// SeparatorWidth is the width of the "=" rule around the per-test lines.
	SeparatorWidth = 50
)

// Watch mode
const (
	// DefaultWatchDebounce is how long watch mode waits for writes to settle.
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Exit codes
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)
