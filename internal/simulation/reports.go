package simulation

import (
	"fmt"
	"strings"
)

// StatsStyle selects how an allocation report prints its memory triple.
type StatsStyle int

const (
	// StyleSummaryLine prints "Total Memory: T, Free: F, Used: U".
	StyleSummaryLine StatsStyle = iota

	// StyleStatsBlock prints the simulator's multi-line stats block.
	StyleStatsBlock

	// StyleNone prints no memory statistics.
	StyleNone
)

// AllocationSpec describes an allocation report.
type AllocationSpec struct {
	// Blocks is the number of "Block N allocated" event lines.
	Blocks int

	// Strategy, when set, switches event lines to the allocator's
	// "Memory allocated with ID: N using <strategy>" form.
	Strategy string

	Total int64
	Free  int64

	// Used defaults to Total-Free; set UsedOverride to break conservation.
	UsedOverride *int64

	Style StatsStyle

	// Failed adds "Successful/Failed Allocations" lines with this many failures.
	Failed int

	// Errors are appended as "Error: <msg>" lines.
	Errors []string

	// Exit appends the simulator's exit line.
	Exit bool
}

// AllocationReport renders an allocation report.
func AllocationReport(spec AllocationSpec) string {
	var b strings.Builder
	b.WriteString("Memory Management Simulator\n")

	for i := 1; i <= spec.Blocks; i++ {
		if spec.Strategy != "" {
			fmt.Fprintf(&b, "Memory allocated with ID: %d using %s\n", i, spec.Strategy)
		} else {
			fmt.Fprintf(&b, "Block %d allocated\n", i)
		}
	}

	used := spec.Total - spec.Free
	if spec.UsedOverride != nil {
		used = *spec.UsedOverride
	}

	switch spec.Style {
	case StyleSummaryLine:
		fmt.Fprintf(&b, "Total Memory: %d, Free: %d, Used: %d\n", spec.Total, spec.Free, used)
	case StyleStatsBlock:
		fmt.Fprintf(&b, "Total memory %d\nFree memory %d\nAllocated memory %d\n", spec.Total, spec.Free, used)
		utilization := 0.0
		if spec.Total > 0 {
			utilization = float64(used) / float64(spec.Total) * 100
		}
		fmt.Fprintf(&b, "Memory Utilization %g%%\n", utilization)
	}

	if spec.Failed > 0 || spec.Style == StyleStatsBlock {
		fmt.Fprintf(&b, "Total Allocation Attempts: %d\n", spec.Blocks+spec.Failed)
		fmt.Fprintf(&b, "Successful Allocations: %d\n", spec.Blocks)
		fmt.Fprintf(&b, "Failed Allocations: %d\n", spec.Failed)
	}

	for _, e := range spec.Errors {
		fmt.Fprintf(&b, "Error: %s\n", e)
	}
	if spec.Exit {
		b.WriteString("> exit\n")
	}
	return b.String()
}

// CacheLevel describes one cache level's statistics line.
type CacheLevel struct {
	Level  int
	Hits   int64
	Misses int64

	// RatioOverride replaces the computed hit ratio.
	RatioOverride *float64
}

// Ratio returns the ratio the level reports.
func (c CacheLevel) Ratio() float64 {
	if c.RatioOverride != nil {
		return *c.RatioOverride
	}
	if c.Hits+c.Misses == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Hits+c.Misses)
}

// CacheReport renders a cache report with one statistics line per level.
func CacheReport(levels ...CacheLevel) string {
	var b strings.Builder
	b.WriteString("> cache_stats\n")
	for _, l := range levels {
		fmt.Fprintf(&b, "L%d Cache - Hits: %d, Misses: %d, Hit Ratio: %g\n", l.Level, l.Hits, l.Misses, l.Ratio())
	}
	return b.String()
}

// Translation is one virtual/physical address pair.
type Translation struct {
	Virtual  int64
	Physical int64
}

// TranslationReport renders a virtual-memory report.
func TranslationReport(pageSize int64, pairs ...Translation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Virtual memory initialized: %d virtual, %d physical, page size %d\n",
		pageSize*16, pageSize*4, pageSize)
	for _, p := range pairs {
		fmt.Fprintf(&b, "> translate %d\n", p.Virtual)
		fmt.Fprintf(&b, "Virtual address %d -> Physical address %d\n", p.Virtual, p.Physical)
	}
	return b.String()
}

// IntegrationReport renders a combined run touching the named subsystems
// ("memory", "cache", "virtual"). Unknown names are ignored.
func IntegrationReport(subsystems ...string) string {
	var b strings.Builder
	b.WriteString("Integration run\n")
	for _, s := range subsystems {
		switch s {
		case "memory":
			b.WriteString("Memory allocated with ID: 1 using first-fit\n")
		case "cache":
			b.WriteString("L1 Cache - Hits: 3, Misses: 1, Hit Ratio: 0.75\n")
		case "virtual":
			b.WriteString("Virtual address 4096 -> Physical address 0\n")
		}
	}
	return b.String()
}

// Int64 returns a pointer to v, for override fields.
func Int64(v int64) *int64 {
	return &v
}

// Float64 returns a pointer to v, for override fields.
func Float64(v float64) *float64 {
	return &v
}
