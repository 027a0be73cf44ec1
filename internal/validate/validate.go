// Package validate decides whether a simulator report satisfies the
// invariants of its subsystem category.
//
// Each category has one Validator. Validators are pure functions over
// normalised report text: they never touch the filesystem and always return
// exactly one Verdict.
package validate

import (
	"fmt"
	"strings"
)

// Category identifies which subsystem a report describes.
type Category int

const (
	CategoryAllocation Category = iota + 1
	CategoryCache
	CategoryVirtualMemory
	CategoryIntegration
)

var categoryNames = map[Category]string{
	CategoryAllocation:    "allocation",
	CategoryCache:         "cache",
	CategoryVirtualMemory: "virtual_memory",
	CategoryIntegration:   "integration",
}

// Categories returns all categories in declaration order.
func Categories() []Category {
	return []Category{CategoryAllocation, CategoryCache, CategoryVirtualMemory, CategoryIntegration}
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory maps a category name to a Category. Matching is
// case-insensitive and accepts "-" or " " in place of "_".
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "vm" {
		return CategoryVirtualMemory, nil
	}
	for c, name := range categoryNames {
		if name == norm {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category: %q (valid: allocation, cache, virtual_memory, integration)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Verdict is a validator's decision for one artifact.
type Verdict struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Pass builds a successful Verdict.
func Pass(format string, args ...any) Verdict {
	return Verdict{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed Verdict.
func Fail(format string, args ...any) Verdict {
	return Verdict{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Validator judges one report's text.
type Validator interface {
	Validate(text string) Verdict
}

// Func adapts a plain function to the Validator interface.
type Func func(text string) Verdict

// Validate calls f.
func (f Func) Validate(text string) Verdict {
	return f(text)
}

var validators = map[Category]Validator{
	CategoryAllocation:    Func(Allocation),
	CategoryCache:         Func(Cache),
	CategoryVirtualMemory: Func(VirtualMemory),
	CategoryIntegration:   Func(Integration),
}

// For returns the Validator for a category.
func For(c Category) (Validator, error) {
	v, ok := validators[c]
	if !ok {
		return nil, fmt.Errorf("no validator for %s", c)
	}
	return v, nil
}
