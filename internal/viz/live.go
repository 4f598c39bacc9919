package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/integrators"
)

const (
	historyCapacity = 600
	plotWidth       = 60
	plotHeight      = 10
	tickRate        = time.Second / 30
)

// Scheme is a named blend coefficient selectable at runtime.
type Scheme struct {
	Name  string
	Alpha float64
}

var Schemes = []Scheme{
	{"explicit", 0},
	{"tustin", 0.5},
	{"implicit", 1},
}

type TickMsg time.Time

// Model contains the trajectory state, the stepper and the UI context.
type Model struct {
	sys          dynamo.System
	input        dynamo.Input
	cfg          integrators.Config
	stepper      *integrators.Euler
	staggered    bool
	scheme       int // index into Schemes, -1 for a custom alpha
	stepsPerTick int

	state, next  dynamo.State
	initialState dynamo.State
	ubuf         dynamo.Control
	t            float64
	steps        int

	running   bool
	modelName string
	history   [][]float64 // per component
	last      integrators.Report
	totalIter int
	err       error

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
}

// NewModel prepares a live view of sys. cfg supplies step size, alpha,
// ordering and the Newton budget; its field, Jacobian and size are taken
// from sys. A positive cfg.UOffset selects staggered inputs.
func NewModel(sys dynamo.System, input dynamo.Input, cfg integrators.Config, initState dynamo.State, modelName string, stepsPerTick int) Model {
	if input == nil {
		input = dynamo.ConstantInput(make(dynamo.Control, sys.InputDim()))
	}
	cfg.Field, cfg.Jacobian, cfg.XSize = sys, sys, sys.StateDim()
	staggered := cfg.UOffset > 0
	if staggered {
		cfg.UOffset = sys.InputDim()
	}

	params := make(map[string]float64)
	if c, ok := sys.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	initialParams := make(map[string]float64, len(params))
	for k, v := range params {
		keys = append(keys, k)
		initialParams[k] = v
	}
	sort.Strings(keys)

	scheme := -1
	for i, s := range Schemes {
		if s.Alpha == cfg.Alpha {
			scheme = i
		}
	}

	m := Model{
		sys:           sys,
		input:         input,
		cfg:           cfg,
		stepper:       integrators.NewEuler(cfg),
		staggered:     staggered,
		scheme:        scheme,
		stepsPerTick:  max(stepsPerTick, 1),
		state:         initState.Clone(),
		next:          make(dynamo.State, len(initState)),
		initialState:  initState.Clone(),
		ubuf:          make(dynamo.Control, 0, 2*sys.InputDim()),
		running:       true,
		modelName:     modelName,
		history:       make([][]float64, len(initState)),
		params:        params,
		initialParams: initialParams,
		paramKeys:     keys,
	}
	m.record()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances the trajectory.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.running = !m.running
			}
		case "s":
			if !m.running && m.err == nil {
				m.step()
			}
		case "a":
			m.cycleScheme()
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerTick && m.err == nil; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances one theta step; failures pause the view.
func (m *Model) step() {
	u := m.input.At(m.t)
	if m.staggered {
		m.ubuf = append(m.ubuf[:0], u...)
		m.ubuf = append(m.ubuf, m.input.At(m.t+m.cfg.Ts)...)
		u = m.ubuf
	}

	rep, err := m.stepper.Step(m.next, m.t, m.state, u, nil)
	m.last = rep
	if err == nil && !m.next.IsValid() {
		err = dynamo.ErrInvalidState
	}
	if err != nil {
		m.err = &dynamo.SimulationError{Step: m.steps, Time: m.t, State: m.state.Clone(), Wrapped: err}
		m.running = false
		return
	}

	m.totalIter += rep.Newton.Iterations
	m.state, m.next = m.next, m.state
	m.steps++
	m.t = float64(m.steps) * m.cfg.Ts
	m.record()
}

func (m *Model) record() {
	for i, v := range m.state {
		m.history[i] = append(m.history[i], v)
		if len(m.history[i]) > historyCapacity {
			m.history[i] = m.history[i][1:]
		}
	}
}

func (m *Model) cycleScheme() {
	m.scheme = (m.scheme + 1) % len(Schemes)
	m.cfg.Alpha = Schemes[m.scheme].Alpha
	m.stepper = integrators.NewEuler(m.cfg)
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	newVal := m.params[key] * factor
	if c, ok := m.sys.(dynamo.Configurable); ok {
		if err := c.SetParam(key, newVal); err != nil {
			return
		}
	}
	m.params[key] = newVal
}

// reset restores the initial state and parameters.
func (m *Model) reset() {
	m.t, m.steps, m.totalIter = 0, 0, 0
	m.err = nil
	m.last = integrators.Report{}
	m.running = true
	copy(m.state, m.initialState)
	for i := range m.history {
		m.history[i] = m.history[i][:0]
	}
	for k, v := range m.initialParams {
		m.params[k] = v
		if c, ok := m.sys.(dynamo.Configurable); ok {
			_ = c.SetParam(k, v)
		}
	}
	m.record()
}

func (m Model) State() dynamo.State            { return m.state }
func (m Model) Time() float64                  { return m.t }
func (m Model) Running() bool                  { return m.running }
func (m Model) Alpha() float64                 { return m.cfg.Alpha }
func (m Model) LastReport() integrators.Report { return m.last }
func (m Model) Err() error                     { return m.err }

func (m Model) schemeName() string {
	if m.scheme < 0 {
		return fmt.Sprintf("theta α=%.2f", m.cfg.Alpha)
	}
	return Schemes[m.scheme].Name
}

// View renders the TUI interface.
func (m Model) View() string {
	var s strings.Builder

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.err != nil:
		status = StatusFailed.Render("FAILED")
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}
	s.WriteString(Title.Render(strings.ToUpper(m.modelName)) + "  " + Subtle.Render(m.schemeName()) + "  " + status + "\n\n")

	var left strings.Builder
	left.WriteString(Row("t", fmt.Sprintf("%.3f", m.t)) + "\n")
	left.WriteString(Row("dt", fmt.Sprintf("%g", m.cfg.Ts)) + "\n")
	for i, v := range m.state {
		left.WriteString(Row(fmt.Sprintf("x%d", i), fmt.Sprintf("% .6f", v)) + "\n")
	}
	if m.cfg.Implicit() {
		left.WriteString("\n")
		left.WriteString(Row("newton", m.last.Newton.Outcome.String()) + "\n")
		left.WriteString(Row("iterations", fmt.Sprintf("%d (total %d)", m.last.Newton.Iterations, m.totalIter)) + "\n")
		left.WriteString(Row("residual", fmt.Sprintf("%.2e", m.last.Newton.ResidualNorm)) + "\n")
		if m.cfg.MaxIter > 0 {
			left.WriteString(MetricLabel.Render("budget") + ProgressBar(float64(m.last.Newton.Iterations)/float64(m.cfg.MaxIter), 16) + "\n")
		}
	}
	if len(m.paramKeys) > 0 {
		left.WriteString("\n")
		for i, k := range m.paramKeys {
			label := k
			if i == m.selected {
				label = ActiveParam.Render("▸ " + k)
			}
			left.WriteString(MetricLabel.Render(label) + MetricValue.Render(fmt.Sprintf("%.4g", m.params[k])) + "\n")
		}
	}

	panels := []string{Panel.Render(left.String())}
	if len(m.history) >= 2 && len(m.history[0]) > 1 {
		c := NewCanvas(24, 8)
		c.PlotPath(m.history[0], m.history[1])
		panels = append(panels, Panel.Render(Subtle.Render("x0 / x1")+"\n"+c.String()))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...) + "\n")

	if len(m.history) > 0 && len(m.history[0]) > 1 {
		graph := asciigraph.PlotMany(m.history,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("state history"),
		)
		s.WriteString(GraphStyle.Render(graph) + "\n")
	}

	if m.err != nil {
		s.WriteString(StatusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString(KeyHint.Render("space pause • s step • a scheme • r reset • tab/↑/↓ params • q quit"))
	return s.String()
}
