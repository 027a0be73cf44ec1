package extract

// SubsystemFacts records which subsystems an integration report mentions.
type SubsystemFacts struct {
	Memory  bool
	Cache   bool
	Virtual bool
}

// Count returns how many of the three subsystems are present.
func (s SubsystemFacts) Count() int {
	n := 0
	for _, present := range []bool{s.Memory, s.Cache, s.Virtual} {
		if present {
			n++
		}
	}
	return n
}

// Subsystems checks an integration report for each subsystem keyword.
func Subsystems(text string) SubsystemFacts {
	kw := NewKeywords(text)
	return SubsystemFacts{
		Memory:  kw.Has("memory"),
		Cache:   kw.Has("cache"),
		Virtual: kw.Any("virtual", "translat"),
	}
}
