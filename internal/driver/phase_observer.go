package driver

import "time"

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a pipeline phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted by BuildDocumentModel and Check.
type PhaseObserver func(PhaseEvent)

// UnitStatus is the outcome of one unit in the parse phase.
type UnitStatus uint8

const (
	UnitParsed UnitStatus = iota
	UnitCached
	UnitFailed
)

func (s UnitStatus) String() string {
	switch s {
	case UnitCached:
		return "cached"
	case UnitFailed:
		return "failed"
	default:
		return "parsed"
	}
}

// UnitEvent is emitted once per unit. Done counts finished units, so events
// may arrive out of source order.
type UnitEvent struct {
	Path    string
	Status  UnitStatus
	Done    int
	Total   int
	Elapsed time.Duration
}

// ProgressFunc receives unit events from worker goroutines; it must be safe
// for concurrent use.
type ProgressFunc func(UnitEvent)
