package viz

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/layout"
	"github.com/san-kum/forcegraph/internal/render"
	"github.com/san-kum/forcegraph/internal/sim"
)

const (
	sidebarWidth    = 40
	historyCapacity = 120
	frameInterval   = time.Second / 60
	labelLength     = 10
)

type TickMsg time.Time

// Model is the Bubble Tea model of the live view. It is used by pointer:
// the controller calls back into it from posted completions.
type Model struct {
	ctrl  *layout.Controller
	sched *sim.Scheduler

	theme  Theme
	styles styles

	selected dynamo.ID
	paused   bool
	lastStep time.Time
	history  []float64
	status   string
	errMsg   string
	showHelp bool

	width, height int
}

// New builds a view over ctrl, whose contexts must draw into
// *render.Canvas renderers, and sched, which ticks ctrl.
func New(ctrl *layout.Controller, sched *sim.Scheduler) *Model {
	m := &Model{
		ctrl:    ctrl,
		sched:   sched,
		theme:   ThemeDusk,
		history: make([]float64, 0, historyCapacity),
		status:  "loading",
	}
	m.styles = newStyles(m.theme)
	return m
}

func (m *Model) SetTheme(name string) {
	m.theme = GetTheme(name)
	m.styles = newStyles(m.theme)
}

// Report shows err in the status line. It is meant for layout.WithOnError.
func (m *Model) Report(err error) {
	m.errMsg = err.Error()
}

func (m *Model) Selected() dynamo.ID { return m.selected }
func (m *Model) Paused() bool        { return m.paused }

// Focus selects id if it is a selectable particle of the active context.
func (m *Model) Focus(id dynamo.ID) bool {
	for _, p := range m.targets() {
		if p.ID == id {
			m.selected = id
			m.follow()
			return true
		}
	}
	return false
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case TickMsg:
		m.frame(time.Time(msg))
		return m, tick()
	}
	return m, nil
}

// frame runs posted completions and steps the scheduler once its delay has
// passed.
func (m *Model) frame(now time.Time) {
	m.flush()
	if m.paused || !m.sched.Running() {
		return
	}
	if now.Sub(m.lastStep) < m.sched.Delay() {
		return
	}
	m.sched.Step()
	m.lastStep = now
	m.record(m.ctrl.LastTick().Fraction)
}

func (m *Model) flush() {
	for {
		select {
		case fn := <-m.sched.Posted():
			fn()
		default:
			return
		}
	}
}

func (m *Model) record(f float64) {
	if len(m.history) == historyCapacity {
		m.history = slices.Delete(m.history, 0, 1)
	}
	m.history = append(m.history, f)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	cols := max(w-sidebarWidth-2, 10)
	rows := max(h-1, 5)
	for _, c := range m.canvases() {
		c.Grid = render.NewBraille(cols, rows)
	}
	m.ctrl.Resize(float64(cols*2), float64(rows*4))
}

func (m *Model) canvases() []*render.Canvas {
	var out []*render.Canvas
	for _, ctx := range []*layout.Context{m.ctrl.Active(), m.ctrl.Background()} {
		if c, ok := ctx.View.(*render.Canvas); ok {
			out = append(out, c)
		}
	}
	return out
}

func (m *Model) canvas() *render.Canvas {
	c, _ := m.ctrl.Active().View.(*render.Canvas)
	return c
}

// targets lists the particles the cursor can stop on, in id order.
func (m *Model) targets() []*dynamo.Particle {
	var out []*dynamo.Particle
	m.ctrl.Active().Model.Each(func(p *dynamo.Particle) bool {
		if !p.ID.IsTemp() {
			out = append(out, p)
		}
		return true
	})
	slices.SortFunc(out, func(a, b *dynamo.Particle) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

func (m *Model) current() *dynamo.Particle {
	if p, ok := m.ctrl.Active().Model.Get(m.selected); ok && !p.ID.IsTemp() {
		return p
	}
	return nil
}

func (m *Model) move(step int) {
	ts := m.targets()
	if len(ts) == 0 {
		m.selected = ""
		return
	}
	i := slices.IndexFunc(ts, func(p *dynamo.Particle) bool { return p.ID == m.selected })
	switch {
	case i < 0:
		i = 0
	default:
		i = (i + step + len(ts)) % len(ts)
	}
	m.selected = ts[i].ID
	m.follow()
}

// follow moves a staged relation's loose end onto the selection.
func (m *Model) follow() {
	if !m.ctrl.Dragging() {
		return
	}
	if p := m.current(); p != nil {
		_ = m.ctrl.DragTo(p.Pos)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "tab", "down", "j":
		m.move(1)
		return nil
	case "shift+tab", "up", "k":
		m.move(-1)
		return nil
	case " ":
		m.paused = !m.paused
		if !m.paused {
			m.sched.Wake()
		}
		return nil
	case "t":
		m.theme = nextTheme(m.theme)
		m.styles = newStyles(m.theme)
		return nil
	case "?":
		m.showHelp = !m.showHelp
		return nil
	case "esc":
		m.apply("cancelled", m.ctrl.CancelDrag())
		return nil
	}

	p := m.current()
	if p == nil {
		return nil
	}
	name := display(p)
	switch msg.String() {
	case "enter":
		m.apply("toggled "+name, m.ctrl.Toggle(p.ID))
		if _, ok := m.ctrl.Active().Model.Get(m.selected); !ok {
			m.selected = ""
		}
	case "a":
		m.apply("adding under "+name, m.ctrl.AddChild(p.ID))
	case "x", "delete":
		if err := m.ctrl.Delete(p.ID); err != nil {
			m.apply("", err)
			return nil
		}
		m.apply("deleted "+name, nil)
		m.move(0)
	case "e":
		m.apply("reasoning over "+name, m.ctrl.Reason(p.ID))
	case "r":
		if m.ctrl.Dragging() {
			m.apply("relating to "+name, m.ctrl.Drop(p.ID))
		} else {
			m.apply("relating from "+name, m.ctrl.BeginDrag(p.ID))
		}
	}
	return nil
}

func (m *Model) apply(status string, err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.status = status
}

func display(p *dynamo.Particle) string {
	if p.Name != "" {
		return p.Name
	}
	return string(p.ID)
}

func (m *Model) View() string {
	c := m.canvas()
	if c == nil {
		return "no canvas\n"
	}
	graph := m.styles.canvas.Render(m.drawGraph(c))
	return lipgloss.JoinHorizontal(lipgloss.Top, graph, m.styles.panel.Render(m.sidebar()))
}

type cell struct{ col, row int }

// drawGraph renders the braille frame with descriptor labels, relation
// markers and the selection overlaid.
func (m *Model) drawGraph(c *render.Canvas) string {
	lines := strings.Split(c.Frame(), "\n")
	marks := make(map[cell]string)
	mark := func(col, row int, s string, st lipgloss.Style) {
		for i, r := range []rune(s) {
			marks[cell{col + i, row}] = st.Render(string(r))
		}
	}

	nodes := c.Nodes()
	for _, p := range nodes {
		if p.Kind == dynamo.Relation {
			col, row := c.Locate(p)
			mark(col, row, "◇", m.styles.relation)
		}
	}
	for _, p := range nodes {
		if p.Kind != dynamo.Descriptor {
			continue
		}
		col, row := c.Locate(p)
		label := []rune(display(p))
		if len(label) > labelLength {
			label = label[:labelLength]
		}
		mark(col+1, row, string(label), m.styles.descriptor)
	}
	if p, ok := m.ctrl.Active().Model.Get(dynamo.TempNode); ok {
		col, row := c.Locate(p)
		mark(col, row, "◎", m.styles.staged)
	}
	if p := m.current(); p != nil {
		col, row := c.Locate(p)
		mark(col, row, "◉", m.styles.selected)
	}

	var b strings.Builder
	for row, line := range lines {
		if row > 0 {
			b.WriteByte('\n')
		}
		runes := []rune(line)
		last := 0
		for col := range runes {
			s, ok := marks[cell{col, row}]
			if !ok {
				continue
			}
			b.WriteString(m.styles.graph.Render(string(runes[last:col])))
			b.WriteString(s)
			last = col + 1
		}
		b.WriteString(m.styles.graph.Render(string(runes[last:])))
	}
	return b.String()
}

func (m *Model) sidebar() string {
	var s strings.Builder
	st := m.ctrl.Stats()
	last := m.ctrl.LastTick()

	title := m.ctrl.Active().Name
	if id, ok := m.ctrl.Drilled(); ok {
		if p, ok := m.ctrl.Active().Model.Get(id); ok {
			title = "drilled into " + display(p)
		}
	}
	s.WriteString(m.styles.header.Render(strings.ToUpper(title)) + "\n")

	switch {
	case m.paused:
		s.WriteString(m.styles.warn.Render("PAUSED"))
	case m.sched.Running():
		s.WriteString(m.styles.ok.Render("RUNNING"))
	default:
		s.WriteString(m.styles.value.Render("SETTLED"))
	}
	if st.Dragging {
		s.WriteString("  " + m.styles.staged.Render("RELATING"))
	}
	s.WriteString("\n\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(sidebarWidth-14), asciigraph.Caption("moved"))
		s.WriteString(m.styles.chart.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(m.styles.label.Render(label) + m.styles.value.Render(value) + "\n")
	}
	s.WriteString(m.styles.label.Render("Moved") + m.styles.fractionBar(last.Fraction, 12) + "\n")
	row("Tick", fmt.Sprintf("%d", m.sched.Ticks()))
	row("Delay", m.sched.Delay().String())
	row("Particles", fmt.Sprintf("%d", st.Live))
	row("Springs", fmt.Sprintf("%d", st.Springs))
	row("Magnets", fmt.Sprintf("%d", st.Magnets))
	row("Instances", fmt.Sprintf("%d", st.Instances))
	row("Queued", fmt.Sprintf("%d/%d/%d", st.QueuedNodes, st.QueuedEdges, st.QueuedInstances))
	row("Inflight", fmt.Sprintf("%d", m.sched.Inflight()))
	if st.Failures > 0 {
		row("Failures", fmt.Sprintf("%d", st.Failures))
	}

	s.WriteString("\n")
	if p := m.current(); p != nil {
		row("Selected", display(p))
		row("Kind", p.Kind.String())
		row("At", fmt.Sprintf("%.1f, %.1f", p.Pos.X, p.Pos.Y))
	} else {
		row("Selected", "-")
	}

	s.WriteString("\n")
	if m.errMsg != "" {
		s.WriteString(m.styles.err.Render(m.errMsg) + "\n")
	} else if m.status != "" {
		s.WriteString(m.styles.value.Render(m.status) + "\n")
	}

	if m.showHelp {
		s.WriteString(m.styles.help.Render("tab/↑↓ select  enter drill\na add  x delete  e reason\nr relate  esc cancel\nspace pause  t theme  q quit"))
	} else {
		s.WriteString(m.styles.help.Render("?:help  q:quit"))
	}
	return s.String()
}
