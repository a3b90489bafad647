package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/Elib27/galaxy-simulation/internal/metrics"
	"github.com/Elib27/galaxy-simulation/internal/octree"
	"github.com/Elib27/galaxy-simulation/internal/sim"
)

const (
	canvasWidth     = 80
	canvasHeight    = 32
	historyCapacity = 300
	frameInterval   = time.Second / 30

	starsStep     = 100
	panelMinStars = 100
	panelMaxStars = 10000
	speedStep     = 1.0
	timeStepInc   = 0.1
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives a controller from the Bubble Tea event loop.
type Model struct {
	ctx    context.Context
	ctrl   *sim.Controller
	energy *metrics.KineticEnergy
	dt     float64

	canvas     *Canvas
	camera     *Camera
	theme      Theme
	styles     styles
	showBounds bool

	frame   sim.Frame
	history []float64
	err     error
}

// NewModel wraps ctrl. dt is the base step passed to Step on every tick.
func NewModel(ctx context.Context, ctrl *sim.Controller, dt float64) *Model {
	p := ctrl.Params()
	m := &Model{
		ctx:    ctx,
		ctrl:   ctrl,
		energy: metrics.NewKineticEnergy(),
		dt:     dt,
		canvas: NewCanvas(canvasWidth, canvasHeight),
		camera: NewCamera(p.Galaxy.Diameter * 1.2),
		theme:  Themes[0],
	}
	m.styles = newStyles(m.theme)
	m.frame = ctrl.Snapshot()
	m.observe(m.frame)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case TickMsg:
		m.step()
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c":
		return tea.Quit
	case " ":
		m.ctrl.Toggle()
	case "r":
		m.regenerate(m.ctrl.Params())
	case "+", "=":
		m.adjustTimeStep(timeStepInc)
	case "-", "_":
		m.adjustTimeStep(-timeStepInc)
	case "]":
		m.adjustStars(starsStep)
	case "[":
		m.adjustStars(-starsStep)
	case ".":
		m.adjustSpeed(speedStep)
	case ",":
		m.adjustSpeed(-speedStep)
	case "x":
		m.camera.Tilt(0.1)
	case "X":
		m.camera.Tilt(-0.1)
	case "y":
		m.camera.Spin(0.1)
	case "Y":
		m.camera.Spin(-0.1)
	case "z":
		m.camera.ZoomIn()
	case "Z":
		m.camera.ZoomOut()
	case "b":
		m.showBounds = !m.showBounds
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = newStyles(m.theme)
	}
	return nil
}

func (m *Model) step() {
	f, ok, err := m.ctrl.Step(m.ctx, m.dt)
	if err != nil {
		m.err = err
		return
	}
	if ok {
		m.err = nil
		m.frame = f
		m.observe(f)
	}
}

func (m *Model) observe(f sim.Frame) {
	m.energy.Observe(f)
	m.history = append(m.history, m.energy.Value())
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func (m *Model) adjustTimeStep(delta float64) {
	p := m.ctrl.Params()
	next := math.Round((p.TimeStep+delta)*10) / 10
	next = math.Max(sim.MinTimeStep, math.Min(sim.MaxTimeStep, next))
	m.err = m.ctrl.SetTimeStep(next)
}

func (m *Model) adjustStars(delta int) {
	p := m.ctrl.Params()
	p.Stars = max(panelMinStars, min(panelMaxStars, p.Stars+delta))
	m.regenerate(p)
}

func (m *Model) adjustSpeed(delta float64) {
	p := m.ctrl.Params()
	p.InitialSpeed = math.Max(sim.MinInitialSpeed, math.Min(sim.MaxInitialSpeed, p.InitialSpeed+delta))
	m.regenerate(p)
}

func (m *Model) regenerate(p sim.Params) {
	if err := m.ctrl.Restart(p); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.energy.Reset()
	m.history = m.history[:0]
	m.frame = m.ctrl.Snapshot()
	m.observe(m.frame)
}

// Frame returns the frame currently on screen.
func (m *Model) Frame() sim.Frame { return m.frame }

func (m *Model) draw() int {
	m.canvas.Clear()
	if m.showBounds {
		RenderCube(m.canvas, m.camera, octree.Centered(m.ctrl.Params().BoundSize))
	}
	return RenderPoints(m.canvas, m.camera, m.frame.Positions)
}

func (m *Model) View() string {
	visible := m.draw()
	p := m.ctrl.Params()
	st := m.styles

	var s strings.Builder
	s.WriteString(st.header.Render("GALAXY") + "\n")

	switch state := m.ctrl.State(); state {
	case sim.Running:
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(st.paused.Render(strings.ToUpper(state.String())) + "\n\n")
	}

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	tree := m.frame.Stats.Tree
	row("Step", fmt.Sprintf("%d", m.frame.Step))
	row("Time", fmt.Sprintf("%.1f", m.frame.Time))
	row("Stars", fmt.Sprintf("%d (%d visible)", len(m.frame.Positions), visible))
	row("Initial speed", fmt.Sprintf("%.0f", p.InitialSpeed))
	row("Time step", fmt.Sprintf("%.1f", p.TimeStep))
	row("Theta", fmt.Sprintf("%.2f", p.Theta))
	row("Softening", fmt.Sprintf("%.1f", p.Softening))
	row("Nodes", fmt.Sprintf("%d (depth %d)", tree.Nodes, tree.MaxDepth))
	row("Dropped", fmt.Sprintf("%d + %d outside", tree.Dropped, tree.Outside))
	row("Interactions", fmt.Sprintf("%d", m.frame.Stats.Interactions))
	row("Step time", m.frame.Stats.Duration.Round(time.Microsecond).String())
	row("Theme", m.theme.Name)

	if m.err != nil {
		s.WriteString("\n" + st.err.Render(m.err.Error()) + "\n")
	}

	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit\n+/-:Time step  [ ]:Stars  , .:Speed\nx/y:Rotate  z/Z:Zoom  B:Bounds  T:Theme"))

	canvasView := st.canvas.Render(m.canvas.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
}
