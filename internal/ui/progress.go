// Package ui renders check progress as a Bubble Tea program.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"a11ygraph/internal/driver"
)

// Event is either a phase boundary or a finished unit.
type Event struct {
	Phase *driver.PhaseEvent
	Unit  *driver.UnitEvent
}

// Sink adapts a channel to the driver callbacks. Sends never block the
// workers: when the channel is full the event is dropped, the next unit
// event carries the cumulative count anyway.
type Sink struct {
	Ch chan<- Event
}

func (s Sink) Unit(ev driver.UnitEvent) {
	select {
	case s.Ch <- Event{Unit: &ev}:
	default:
	}
}

func (s Sink) Phase(ev driver.PhaseEvent) {
	select {
	case s.Ch <- Event{Phase: &ev}:
	default:
	}
}

type progressModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	phase   string
	done    int
	total   int
	width   int
	// видимых строк, остальные сворачиваются в "+N more"
	maxRows  int
	finished bool
}

type fileItem struct {
	path   string
	status string
}

type eventMsg Event
type doneMsg struct{}

// NewProgressModel returns a model listing files with their parse status.
// The program quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: "queued"})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		total:   len(files),
		width:   80,
		maxRows: 12,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s %d/%d", m.title, m.done, m.total)
	if m.phase != "" {
		header = fmt.Sprintf("%s (%s)", header, m.phase)
	}
	if m.finished {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 8
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}
	for i, item := range m.visible() {
		if i == m.maxRows {
			fmt.Fprintf(&b, "  %*s +%d more\n", statusWidth, "", len(m.items)-m.maxRows)
			break
		}
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(item.path, nameWidth))
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

// visible puts unfinished files first so the rows that still change stay on
// screen.
func (m *progressModel) visible() []fileItem {
	if len(m.items) <= m.maxRows {
		return m.items
	}
	out := make([]fileItem, 0, len(m.items))
	for _, it := range m.items {
		if it.status == "queued" {
			out = append(out, it)
		}
	}
	for _, it := range m.items {
		if it.status != "queued" {
			out = append(out, it)
		}
	}
	return out
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev Event) tea.Cmd {
	if ev.Phase != nil {
		if ev.Phase.Status == driver.PhaseStart {
			m.phase = ev.Phase.Name
		}
		return nil
	}
	if ev.Unit == nil {
		return nil
	}
	u := ev.Unit
	if idx, ok := m.index[u.Path]; ok {
		m.items[idx].status = u.Status.String()
	}
	if u.Done > m.done {
		m.done = u.Done
	}
	if u.Total > 0 {
		m.total = u.Total
	}
	if m.total == 0 {
		return nil
	}
	return m.prog.SetPercent(float64(m.done) / float64(m.total))
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "parsed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "cached":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case "failed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
