package driver

import (
	"encoding/json"
	"fmt"
	"time"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/observ"
	"a11ygraph/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Units   int                  `json:"units"`
	Hits    int64                `json:"cache_hits"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// timingDiagnostic renders a timer report as an info diagnostic whose note
// holds the JSON payload.
func timingDiagnostic(payload timingPayload) (diag.Diagnostic, bool) {
	if payload.Kind == "" {
		payload.Kind = "check"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return diag.Diagnostic{}, false
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms over %d units", payload.Kind, payload.TotalMS, payload.Units)
	d := diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, msg)
	return d.WithNote(source.Span{}, string(data)), true
}

// phase opens a named phase on the timer and the observer; the returned
// func closes it.
func (o *Options) phase(name string) func(note string) {
	start := time.Now()
	idx := -1
	if o.Timer != nil {
		idx = o.Timer.Begin(name)
	}
	if o.Phases != nil {
		o.Phases(PhaseEvent{Name: name, Status: PhaseStart})
	}
	return func(note string) {
		if o.Timer != nil {
			o.Timer.End(idx, note)
		}
		if o.Phases != nil {
			o.Phases(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: time.Since(start)})
		}
	}
}
