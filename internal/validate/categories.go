package validate

import (
	"fmt"
	"math"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/extract"
)

// Allocation passes when the memory triple is conserved exactly. Without a
// triple it accepts a report that has a completion marker and no error marker.
func Allocation(text string) Verdict {
	facts := extract.Allocation(text)

	if facts.HasTriple {
		t := facts.Triple
		if !t.Conserved() {
			return Fail("Allocation test failed - Total %d != Free %d + Used %d", t.Total, t.Free, t.Used)
		}
		return Pass("Allocation test passed - Total: %d, Free: %d, Used: %d%s", t.Total, t.Free, t.Used, allocationDetail(facts))
	}

	switch {
	case facts.HasError:
		return Fail("Allocation test failed - no memory statistics and report contains an error")
	case !facts.HasExit:
		return Fail("Allocation test failed - no memory statistics and no completion marker")
	}
	return Pass("Allocation test passed - run completed without errors%s", allocationDetail(facts))
}

func allocationDetail(facts extract.AllocationFacts) string {
	detail := fmt.Sprintf(" (%d allocation events", facts.Events)
	if facts.HasCounts {
		detail += fmt.Sprintf(", %d successful, %d failed", facts.Successful, facts.Failed)
	}
	return detail + ")"
}

// Cache passes when the primary level's reported hit ratio is within
// constants.HitRatioTolerance of hits/(hits+misses). Without a statistics
// line it accepts a report that mentions cache activity.
func Cache(text string) Verdict {
	facts := extract.Cache(text)

	primary, ok := facts.Primary()
	if !ok {
		if facts.HasActivity {
			return Pass("Cache test passed - cache activity detected")
		}
		return Fail("Cache test failed - no cache statistics found")
	}

	expected := primary.ExpectedRatio()
	if math.Abs(primary.Ratio-expected) >= constants.HitRatioTolerance {
		return Fail("Cache test failed - L%d reported ratio %.2f, expected %.2f (Hits: %d, Misses: %d)",
			primary.Level, primary.Ratio, expected, primary.Hits, primary.Misses)
	}

	levels := ""
	if len(facts.Levels) > 1 {
		levels = fmt.Sprintf(" (%d levels reported)", len(facts.Levels))
	}
	return Pass("Cache test passed - Hits: %d, Misses: %d, Ratio: %.2f%s", primary.Hits, primary.Misses, primary.Ratio, levels)
}

// VirtualMemory passes when at least one translation was found and every
// physical address is non-negative. Without translations it accepts a report
// that mentions both "virtual" and "translate".
func VirtualMemory(text string) Verdict {
	facts := extract.Translations(text)

	if len(facts.Records) == 0 {
		if facts.HasActivity {
			return Pass("Virtual memory test passed - virtual memory activity detected")
		}
		return Fail("Virtual memory test failed - no address translations found")
	}

	invalid := 0
	var first extract.Translation
	for _, r := range facts.Records {
		if r.Valid() {
			continue
		}
		if invalid == 0 {
			first = r
		}
		invalid++
	}
	if invalid > 0 {
		if first.Overflow {
			return Fail("Virtual memory test failed - %d of %d translations invalid (address out of range)", invalid, len(facts.Records))
		}
		return Fail("Virtual memory test failed - %d of %d translations invalid (virtual %d -> physical %d)",
			invalid, len(facts.Records), first.Virtual, first.Physical)
	}

	return Pass("Virtual memory test passed - %d translations", len(facts.Records))
}

// Integration always passes; the message says how many subsystems the report
// mentions. It certifies that the run executed, not that every subsystem
// engaged.
func Integration(text string) Verdict {
	n := extract.Subsystems(text).Count()
	if n >= constants.IntegrationMinSubsystems {
		return Pass("Integration test passed - %d/3 subsystems verified", n)
	}
	return Pass("Integration test completed")
}
