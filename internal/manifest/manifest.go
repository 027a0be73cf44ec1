// Package manifest defines the ordered list of artifacts a validation run checks.
package manifest

import (
	"fmt"
	"os"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/sanitize"
	"github.com/nvandessel/simverify/internal/validate"
	"gopkg.in/yaml.v3"
)

// Entry pairs an artifact with the validator category that judges it.
type Entry struct {
	Artifact string            `json:"artifact" yaml:"artifact"`
	Category validate.Category `json:"category" yaml:"category"`
	Label    string            `json:"label" yaml:"label"`
}

// Manifest is an ordered, read-only set of entries.
type Manifest struct {
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Default returns the simulator test suite's manifest.
func Default() Manifest {
	return Manifest{Entries: []Entry{
		{constants.SeqAllocArtifact, validate.CategoryAllocation, "Sequential Allocation"},
		{constants.FragmentationArtifact, validate.CategoryAllocation, "Fragmentation"},
		{constants.CacheHitArtifact, validate.CategoryCache, "Cache Hit"},
		{constants.LRUArtifact, validate.CategoryCache, "LRU Replacement"},
		{constants.MultilevelCacheArtifact, validate.CategoryCache, "Multi-level Cache"},
		{constants.TranslationArtifact, validate.CategoryVirtualMemory, "Address Translation"},
		{constants.PageFaultArtifact, validate.CategoryVirtualMemory, "Page Fault"},
		{constants.IntegrationArtifact, validate.CategoryIntegration, "Integration"},
		{constants.AllocatorComparisonArtifact, validate.CategoryAllocation, "Allocator Comparison"},
		{constants.StressAllocationArtifact, validate.CategoryAllocation, "Stress Allocation"},
		{constants.AllocationFailureArtifact, validate.CategoryAllocation, "Allocation Failure"},
	}}
}

// LoadFile reads a YAML manifest:
//
//	entries:
//	  - artifact: seq_alloc_result.txt
//	    category: allocation
//	    label: Sequential Allocation
func LoadFile(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest file: %w", err)
	}

	for i := range m.Entries {
		m.Entries[i].Label = sanitize.SanitizeLabel(m.Entries[i].Label)
		if m.Entries[i].Label == "" {
			m.Entries[i].Label = m.Entries[i].Artifact
		}
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks that the manifest is non-empty, every entry names an
// artifact and a known category, and no artifact is listed twice.
func (m Manifest) Validate() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("manifest has no entries")
	}

	seen := make(map[string]int, len(m.Entries))
	for i, e := range m.Entries {
		if e.Artifact == "" {
			return fmt.Errorf("manifest entry %d: artifact is required", i+1)
		}
		if _, err := validate.For(e.Category); err != nil {
			return fmt.Errorf("manifest entry %d (%s): category is required", i+1, e.Artifact)
		}
		if prev, dup := seen[e.Artifact]; dup {
			return fmt.Errorf("manifest entry %d: artifact %s already listed as entry %d", i+1, e.Artifact, prev)
		}
		seen[e.Artifact] = i + 1
	}
	return nil
}

// Len returns the number of entries.
func (m Manifest) Len() int {
	return len(m.Entries)
}
