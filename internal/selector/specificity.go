package selector

import "fmt"

// Specificity is the (inline, ids, classes, elements) tuple, compared
// lexicographically; higher wins.
type Specificity struct {
	Inline   int
	IDs      int
	Classes  int
	Elements int
}

// InlineSpecificity is used for declarations from a style attribute.
var InlineSpecificity = Specificity{Inline: 1}

// Compare returns -1, 0 or 1.
func (s Specificity) Compare(o Specificity) int {
	for _, d := range [4]int{s.Inline - o.Inline, s.IDs - o.IDs, s.Classes - o.Classes, s.Elements - o.Elements} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

func (s Specificity) Less(o Specificity) bool {
	return s.Compare(o) < 0
}

func (s Specificity) add(o Specificity) Specificity {
	return Specificity{
		Inline:   s.Inline + o.Inline,
		IDs:      s.IDs + o.IDs,
		Classes:  s.Classes + o.Classes,
		Elements: s.Elements + o.Elements,
	}
}

func (s Specificity) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", s.Inline, s.IDs, s.Classes, s.Elements)
}
