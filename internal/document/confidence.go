package document

import "fmt"

// Level is the coarse confidence of an issue.
type Level uint8

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "HIGH"
	case LevelMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ParseLevel accepts HIGH, MEDIUM and LOW in any case.
func ParseLevel(v string) (Level, error) {
	switch v {
	case "HIGH", "high", "High":
		return LevelHigh, nil
	case "MEDIUM", "medium", "Medium":
		return LevelMedium, nil
	case "LOW", "low", "Low", "":
		return LevelLow, nil
	}
	return LevelLow, fmt.Errorf("unknown confidence level %q", v)
}

const (
	highThreshold   = 0.9
	mediumThreshold = 0.5
)

// LevelFor maps a completeness score to a level.
func LevelFor(completeness float64) Level {
	switch {
	case completeness >= highThreshold:
		return LevelHigh
	case completeness >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// FragmentCount returns the number of non-empty fragments.
func (d *Model) FragmentCount() int {
	n := 0
	for _, f := range d.Fragments {
		if !f.Empty() {
			n++
		}
	}
	return n
}

// ReferenceStats counts resolved and unresolved references: relationship
// tokens from the last Resolve plus behavior selectors from the last Merge.
// Behaviors without a selector are not references.
func (d *Model) ReferenceStats() (resolved, unresolved int) {
	for _, rel := range d.relations {
		for _, t := range rel.Tokens {
			if t.Resolved {
				resolved++
			} else {
				unresolved++
			}
		}
	}
	for _, bn := range d.BehaviorNodes() {
		if bn.Ref.Selector == "" {
			continue
		}
		if bn.Ref.IsResolved() {
			resolved++
		} else {
			unresolved++
		}
	}
	return resolved, unresolved
}

// TreeCompleteness estimates how complete the aggregated graph is, in
// [0, 1]. It is recomputed on every call.
func (d *Model) TreeCompleteness() float64 {
	n := d.FragmentCount()
	base := 0.7
	if n != 1 {
		base = max(0.3, 1.0-0.1*float64(n))
	}
	resolved, unresolved := d.ReferenceStats()
	r := 0.0
	if total := resolved + unresolved; total > 0 {
		r = float64(resolved) / float64(total)
	}
	return min(1.0, max(0.0, base+r*0.3))
}

// Level returns the confidence level of the current completeness.
func (d *Model) Level() Level {
	return LevelFor(d.TreeCompleteness())
}

// IsFragmentComplete reports whether every relationship token declared in
// fragment i resolves inside that same fragment.
func (d *Model) IsFragmentComplete(i int) bool {
	if i < 0 || i >= len(d.Fragments) {
		return false
	}
	for _, rel := range d.relations {
		if rel.Source.Fragment != i {
			continue
		}
		for _, t := range rel.Tokens {
			if !t.SameFragment {
				return false
			}
		}
	}
	return true
}
