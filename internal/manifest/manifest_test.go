package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/simverify/internal/validate"
)

func TestDefault(t *testing.T) {
	m := Default()

	if m.Len() != 11 {
		t.Fatalf("Default() has %d entries, want 11", m.Len())
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	want := map[string]validate.Category{
		"seq_alloc_result.txt":          validate.CategoryAllocation,
		"cache_hit_result.txt":          validate.CategoryCache,
		"translation_result.txt":        validate.CategoryVirtualMemory,
		"integration_result.txt":        validate.CategoryIntegration,
		"allocation_failure_result.txt": validate.CategoryAllocation,
	}
	for _, e := range m.Entries {
		if c, ok := want[e.Artifact]; ok && c != e.Category {
			t.Errorf("%s category = %s, want %s", e.Artifact, e.Category, c)
		}
		if e.Label == "" {
			t.Errorf("%s has empty label", e.Artifact)
		}
	}

	if m.Entries[0].Artifact != "seq_alloc_result.txt" {
		t.Errorf("first entry = %s, want seq_alloc_result.txt", m.Entries[0].Artifact)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	content := `
entries:
  - artifact: a_result.txt
    category: allocation
    label: "  Alloc   A "
  - artifact: b_result.txt
    category: virtual-memory
  - artifact: c_result.txt
    category: Cache
    label: Cache C
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	if m.Entries[0].Label != "Alloc A" {
		t.Errorf("Entries[0].Label = %q, want %q", m.Entries[0].Label, "Alloc A")
	}
	if m.Entries[1].Category != validate.CategoryVirtualMemory {
		t.Errorf("Entries[1].Category = %s, want virtual_memory", m.Entries[1].Category)
	}
	if m.Entries[1].Label != "b_result.txt" {
		t.Errorf("Entries[1].Label = %q, want artifact name fallback", m.Entries[1].Label)
	}
	if m.Entries[2].Category != validate.CategoryCache {
		t.Errorf("Entries[2].Category = %s, want cache", m.Entries[2].Category)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{
			name:        "unknown category",
			content:     "entries:\n  - artifact: a.txt\n    category: gpu\n",
			errContains: "unknown category",
		},
		{
			name:        "missing category",
			content:     "entries:\n  - artifact: a.txt\n",
			errContains: "category is required",
		},
		{
			name:        "missing artifact",
			content:     "entries:\n  - category: cache\n",
			errContains: "artifact is required",
		},
		{
			name:        "duplicate artifact",
			content:     "entries:\n  - artifact: a.txt\n    category: cache\n  - artifact: a.txt\n    category: allocation\n",
			errContains: "already listed",
		},
		{
			name:        "empty",
			content:     "entries: []\n",
			errContains: "no entries",
		},
		{
			name:        "malformed yaml",
			content:     "entries: [\n",
			errContains: "parsing manifest file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write manifest: %v", err)
			}
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("LoadFile() expected error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "reading manifest file") {
		t.Errorf("LoadFile(missing) error = %v", err)
	}
}
