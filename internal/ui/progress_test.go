package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a11ygraph/internal/driver"
)

func TestApplyEventUpdatesRows(t *testing.T) {
	ch := make(chan Event, 4)
	m := NewProgressModel("checking", []string{"index.html", "app.js"}, ch).(*progressModel)

	m.applyEvent(Event{Phase: &driver.PhaseEvent{Name: "parse", Status: driver.PhaseStart}})
	m.applyEvent(Event{Unit: &driver.UnitEvent{Path: "app.js", Status: driver.UnitCached, Done: 1, Total: 2}})

	assert.Equal(t, "parse", m.phase)
	assert.Equal(t, "queued", m.items[0].status)
	assert.Equal(t, "cached", m.items[1].status)
	assert.Equal(t, 1, m.done)

	view := m.View()
	assert.Contains(t, view, "checking 1/2 (parse)")
	assert.Contains(t, view, "app.js")

	// out-of-order Done never moves the counter back
	m.applyEvent(Event{Unit: &driver.UnitEvent{Path: "index.html", Status: driver.UnitFailed, Done: 0, Total: 2}})
	assert.Equal(t, 1, m.done)
	assert.Equal(t, "failed", m.items[0].status)
}

func TestViewCollapsesLongLists(t *testing.T) {
	files := make([]string, 20)
	for i := range files {
		files[i] = strings.Repeat("x", i+1) + ".html"
	}
	m := NewProgressModel("checking", files, nil).(*progressModel)
	m.applyEvent(Event{Unit: &driver.UnitEvent{Path: files[0], Status: driver.UnitParsed, Done: 1, Total: 20}})

	view := m.View()
	assert.Contains(t, view, "+8 more")
	rows := m.visible()
	require.Len(t, rows, 20)
	assert.Equal(t, "parsed", rows[19].status)
}

func TestSinkDropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	s := Sink{Ch: ch}
	s.Unit(driver.UnitEvent{Path: "a"})
	s.Unit(driver.UnitEvent{Path: "b"})
	close(ch)

	var got []string
	for ev := range ch {
		got = append(got, ev.Unit.Path)
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
