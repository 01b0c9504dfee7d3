package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/boxclim/internal/core"
)

// Simulation is what the live view drives one year per tick.
type Simulation interface {
	Step() (float64, error)
	Done() bool
	Progress() float64
	Reset() error
	Value(name string) (float64, error)
}

// CoreSimulation adapts a prepared core to Simulation.
type CoreSimulation struct {
	Core *core.Core
}

func (s CoreSimulation) Step() (float64, error) {
	next := s.Core.LastDate() + 1
	if err := s.Core.Run(next); err != nil {
		return 0, err
	}
	return s.Core.LastDate(), nil
}

func (s CoreSimulation) Done() bool {
	return s.Core.LastDate() >= s.Core.Options().EndDate
}

func (s CoreSimulation) Progress() float64 {
	o := s.Core.Options()
	if o.EndDate <= o.StartDate {
		return 1
	}
	return (s.Core.LastDate() - o.StartDate) / (o.EndDate - o.StartDate)
}

func (s CoreSimulation) Reset() error {
	return s.Core.Reset(s.Core.Options().StartDate)
}

func (s CoreSimulation) Value(name string) (float64, error) {
	v, err := s.Core.SendMessage(core.KindGet, name, core.Now())
	return v.V, err
}

var (
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

type TickMsg time.Time

// Model shows a running simulation year by year.
type Model struct {
	sim      Simulation
	title    string
	vars     []string
	selected int
	interval time.Duration

	years   []float64
	history map[string][]float64

	running  bool
	showHelp bool
	err      error
}

func NewModel(sim Simulation, title string, vars []string) Model {
	return Model{
		sim:      sim,
		title:    title,
		vars:     vars,
		interval: time.Second / 30,
		history:  make(map[string][]float64, len(vars)),
		running:  true,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

// Update handles input events and advances the simulation on each tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "tab":
			if len(m.vars) > 0 {
				m.selected = (m.selected + 1) % len(m.vars)
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil && !m.sim.Done() {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) step() {
	year, err := m.sim.Step()
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.years = append(m.years, year)
	for _, name := range m.vars {
		v, err := m.sim.Value(name)
		if err != nil {
			m.err = err
			m.running = false
			return
		}
		m.history[name] = append(m.history[name], v)
	}
}

func (m *Model) reset() {
	if err := m.sim.Reset(); err != nil {
		m.err = err
		return
	}
	m.years = m.years[:0]
	m.history = make(map[string][]float64, len(m.vars))
	m.err = nil
	m.running = true
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render("ERROR: " + m.err.Error())
	case m.sim.Done():
		return lipgloss.NewStyle().Foreground(CurrentTheme.Success).Render("DONE")
	case !m.running:
		return lipgloss.NewStyle().Foreground(CurrentTheme.Warning).Render("PAUSED")
	}
	return lipgloss.NewStyle().Foreground(CurrentTheme.Success).Render("RUNNING")
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(HeaderStyle.Foreground(CurrentTheme.Primary).Render(strings.ToUpper(m.title)) + "\n")

	year := "-"
	if n := len(m.years); n > 0 {
		year = fmt.Sprintf("%g", m.years[n-1])
	}
	fmt.Fprintf(&s, "%s  %s  %s\n", m.status(), valueStyle.Render(year), ProgressBar(m.sim.Progress(), 30))

	if len(m.vars) > 0 {
		name := m.vars[m.selected]
		if h := m.history[name]; len(h) > 1 {
			chart := asciigraph.Plot(h, asciigraph.Height(8), asciigraph.Width(50), asciigraph.Caption(name))
			s.WriteString(graphStyle.Render(chart) + "\n")
		}
	}

	for i, name := range m.vars {
		val := "-"
		if h := m.history[name]; len(h) > 0 {
			val = fmt.Sprintf("%.4g", h[len(h)-1])
		}
		if i == m.selected {
			s.WriteString(activeStyle.Render("> "+fmt.Sprintf("%-16s", name)) + valueStyle.Render(val) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(name) + valueStyle.Render(val) + "\n")
		}
	}

	s.WriteString("\n" + KeyHint.Render("SP:Pause R:Reset TAB:Variable T:Theme ?:Help Q:Quit"))
	view := panelStyle.Render(s.String())
	if m.showHelp {
		return `
  Space  pause or resume
  R      reset to the start date
  Tab    chart the next variable
  T      cycle themes
  Q      quit
` + "\n" + view
	}
	return view
}

// RunLive runs the live view until the user quits.
func RunLive(sim Simulation, title string, vars []string) error {
	_, err := tea.NewProgram(NewModel(sim, title, vars), tea.WithAltScreen()).Run()
	return err
}
