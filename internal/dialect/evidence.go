package dialect

// Hint is a single observation suggesting a dialect. Offset points at the
// byte where it was seen.
type Hint struct {
	Dialect Kind
	Score   int
	Reason  string
	Offset  int
}

// Evidence aggregates hints collected while scanning one source.
type Evidence struct {
	hints []Hint
}

func NewEvidence() *Evidence {
	return &Evidence{
		hints: make([]Hint, 0, 16),
	}
}

// Add appends a hint.
func (e *Evidence) Add(h Hint) {
	if e == nil {
		return
	}
	e.hints = append(e.hints, h)
}

// Hints returns the collected hints.
func (e *Evidence) Hints() []Hint {
	if e == nil {
		return nil
	}
	return e.hints
}
