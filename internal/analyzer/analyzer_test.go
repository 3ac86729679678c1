package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"a11ygraph/internal/behavior"
	"a11ygraph/internal/diag"
	"a11ygraph/internal/document"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
	"a11ygraph/internal/structure"
)

type stub struct {
	name   string
	issues []issue.Issue
	err    error
	panic  bool
}

func (s stub) Name() string { return s.name }

func (s stub) Analyze(*Context) ([]issue.Issue, error) {
	if s.panic {
		panic("boom")
	}
	return s.issues, s.err
}

func at(start uint32, typ string) issue.Issue {
	return issue.Issue{Type: typ, Locations: []source.Span{{Start: start, End: start + 1}}}
}

func TestRegistry(t *testing.T) {
	if _, err := NewRegistry(stub{name: "a"}, stub{name: "a"}); err == nil {
		t.Error("duplicate names must be rejected")
	}
	reg, err := NewRegistry(stub{name: "a"}, stub{name: "b"}, stub{name: "c"})
	if err != nil {
		t.Fatal(err)
	}
	less, err := reg.Without("b")
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(less.Names()); got != "[a c]" {
		t.Errorf("Names = %s", got)
	}
	if _, err := reg.Without("nope"); err == nil {
		t.Error("unknown analyzer must be rejected")
	}
	if reg.FileScoped().Len() != 0 {
		t.Error("stubs do not describe themselves as file scoped")
	}
}

func TestRunIsolatesFaults(t *testing.T) {
	reg, err := NewRegistry(
		stub{name: "late", issues: []issue.Issue{at(9, "late")}},
		stub{name: "crash", panic: true},
		stub{name: "fails", issues: []issue.Issue{at(1, "partial")}, err: errors.New("bad input")},
		stub{name: "early", issues: []issue.Issue{at(0, "early")}},
	)
	if err != nil {
		t.Fatal(err)
	}
	res := Run(context.Background(), reg, ForBehavior(behavior.New("a.js", 0), nil), RunOptions{
		Jobs: 2,
		Refs: map[string][]string{"early": {"WCAG 2.1.1"}},
	})

	if len(res.Faults) != 2 {
		t.Fatalf("faults = %+v", res.Faults)
	}
	if res.Faults[0].Analyzer != "crash" || !res.Faults[0].Panicked || res.Faults[0].Stack == "" {
		t.Errorf("panic fault = %+v", res.Faults[0])
	}
	if res.Faults[1].Analyzer != "fails" || res.Faults[1].Panicked {
		t.Errorf("error fault = %+v", res.Faults[1])
	}
	var types []string
	for _, is := range res.Issues {
		types = append(types, is.Type)
	}
	if got := fmt.Sprint(types); got != "[early partial late]" {
		t.Errorf("issues = %s", got)
	}
	if refs := res.Issues[0].StandardsRefs; len(refs) != 1 || refs[0] != "WCAG 2.1.1" {
		t.Errorf("refs = %v", refs)
	}
}

func TestRunDeterministic(t *testing.T) {
	var as []Analyzer
	for i := range 20 {
		as = append(as, stub{name: fmt.Sprintf("r%02d", i), issues: []issue.Issue{at(uint32(20-i), "x"), at(3, fmt.Sprintf("t%02d", i))}})
	}
	reg, _ := NewRegistry(as...)
	c := ForBehavior(nil, nil)
	first := fmt.Sprint(Run(context.Background(), reg, c, RunOptions{Jobs: 8}).Issues)
	for range 5 {
		if got := fmt.Sprint(Run(context.Background(), reg, c, RunOptions{Jobs: 8}).Issues); got != first {
			t.Fatal("output differs between runs")
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg, _ := NewRegistry(stub{name: "a"})
	res := Run(ctx, reg, ForBehavior(nil, nil), RunOptions{})
	if len(res.Faults) != 1 || !errors.Is(res.Faults[0].Err, context.Canceled) {
		t.Errorf("faults = %+v", res.Faults)
	}
}

func fragments(t *testing.T, n int) *document.Model {
	t.Helper()
	d := document.New(document.ScopeWorkspace)
	for i := range n {
		m := structure.New(fmt.Sprintf("f%d.html", i), 0)
		m.Append(-1, structure.Element{Tag: "div", Attrs: []structure.Attr{{Name: "aria-controls", Value: "ghost"}}})
		if err := d.AddStructure(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Link(); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCounterpartConfidence(t *testing.T) {
	tests := []struct {
		frags int
		sev   diag.Severity
		level document.Level
	}{
		{1, diag.SevError, document.LevelHigh},
		{2, diag.SevWarning, document.LevelMedium},
		{8, diag.SevInfo, document.LevelLow},
	}
	for _, tt := range tests {
		c := ForDocument(fragments(t, tt.frags), nil)
		sev, conf := c.CounterpartConfidence(diag.SevError, "no key handler")
		if sev != tt.sev || conf.Level != tt.level {
			t.Errorf("%d fragments: sev=%v level=%v", tt.frags, sev, conf.Level)
		}
	}

	// одиночный фрагмент без ссылок: 0.7 по completeness, но HIGH по уровню
	_, conf := ForDocument(fragments(t, 1), nil).CounterpartConfidence(diag.SevError, "no key handler")
	if conf.TreeCompleteness >= 0.9 || !strings.HasSuffix(conf.Reason, "single fragment treated as complete") {
		t.Errorf("single fragment: %+v", conf)
	}
	if direct := ForDocument(fragments(t, 1), nil).Direct("seen"); direct.Reason != "seen; single fragment treated as complete" {
		t.Errorf("direct reason = %q", direct.Reason)
	}

	sev, conf := ForBehavior(nil, nil).CounterpartConfidence(diag.SevError, "x")
	if sev != diag.SevInfo || conf.Level != document.LevelLow {
		t.Errorf("file scope: %v %v", sev, conf.Level)
	}
}

func TestSeverityOverride(t *testing.T) {
	c := ForBehavior(nil, nil).WithOverrides(map[string]diag.Severity{"a": diag.SevError})
	if c.Severity("a", diag.SevInfo) != diag.SevError || c.Severity("b", diag.SevInfo) != diag.SevInfo {
		t.Error("override mismatch")
	}
}
