package simulation

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/nvandessel/simverify/internal/constants"
)

// Scenario is a named set of result reports keyed by artifact name.
type Scenario struct {
	Name      string
	Artifacts map[string]string
}

// DefaultScenario returns reports for every default manifest artifact, each
// of which validates successfully.
func DefaultScenario() Scenario {
	return Scenario{
		Name: "default",
		Artifacts: map[string]string{
			constants.SeqAllocArtifact: AllocationReport(AllocationSpec{
				Blocks: 4, Total: 1024, Free: 768, Exit: true,
			}),
			constants.FragmentationArtifact: AllocationReport(AllocationSpec{
				Blocks: 6, Total: 1024, Free: 400, Exit: true,
			}),
			constants.CacheHitArtifact: CacheReport(
				CacheLevel{Level: 1, Hits: 8, Misses: 2},
			),
			constants.LRUArtifact: CacheReport(
				CacheLevel{Level: 1, Hits: 3, Misses: 5},
			),
			constants.MultilevelCacheArtifact: CacheReport(
				CacheLevel{Level: 1, Hits: 6, Misses: 4},
				CacheLevel{Level: 2, Hits: 3, Misses: 1},
			),
			constants.TranslationArtifact: TranslationReport(4096,
				Translation{Virtual: 0, Physical: 8192},
				Translation{Virtual: 4096, Physical: 12288},
			),
			constants.PageFaultArtifact: TranslationReport(4096,
				Translation{Virtual: 16384, Physical: 0},
				Translation{Virtual: 20480, Physical: 4096},
				Translation{Virtual: 24576, Physical: 8192},
			),
			constants.IntegrationArtifact: IntegrationReport("memory", "cache", "virtual"),
			constants.AllocatorComparisonArtifact: AllocationReport(AllocationSpec{
				Blocks: 3, Strategy: "best-fit", Total: 2048, Free: 1536, Style: StyleStatsBlock, Exit: true,
			}),
			constants.StressAllocationArtifact: AllocationReport(AllocationSpec{
				Blocks: 64, Total: 65536, Free: 1024, Exit: true,
			}),
			constants.AllocationFailureArtifact: AllocationReport(AllocationSpec{
				Blocks: 2, Strategy: "first-fit", Total: 512, Free: 0, Style: StyleStatsBlock, Failed: 3, Exit: true,
			}),
		},
	}
}

// With returns a copy of s with artifact set to text.
func (s Scenario) With(artifact, text string) Scenario {
	out := s.clone()
	out.Artifacts[artifact] = text
	return out
}

// Without returns a copy of s lacking the named artifacts.
func (s Scenario) Without(artifacts ...string) Scenario {
	out := s.clone()
	for _, a := range artifacts {
		delete(out.Artifacts, a)
	}
	return out
}

// Names returns the artifact names in sorted order.
func (s Scenario) Names() []string {
	return slices.Sorted(maps.Keys(s.Artifacts))
}

// WriteTo writes every report into dir, creating dir if needed. Existing
// files with the same names are overwritten.
func (s Scenario) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	for _, name := range s.Names() {
		if name != filepath.Base(name) {
			return fmt.Errorf("artifact %q must be a bare file name", name)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(s.Artifacts[name]), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func (s Scenario) clone() Scenario {
	out := Scenario{Name: s.Name, Artifacts: make(map[string]string, len(s.Artifacts))}
	maps.Copy(out.Artifacts, s.Artifacts)
	return out
}
