package viz

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/octree"
	"github.com/Elib27/galaxy-simulation/internal/sim"
)

func TestCanvasSetAndString(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if !c.Lit(0, 0) || !c.Lit(3, 3) {
		t.Error("expected pixels to be lit")
	}
	if c.Lit(1, 0) {
		t.Error("unexpected lit pixel")
	}

	want := string([]rune{0x2801, 0x2880}) + "\n"
	if got := c.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	c.Clear()
	if c.Lit(0, 0) {
		t.Error("clear left pixel lit")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(5, 2)
	c.DrawLine(0, 0, 9, 0)
	for x := 0; x < 10; x++ {
		if !c.Lit(x, 0) {
			t.Errorf("pixel %d not lit", x)
		}
	}
	c.DrawLine(0, 7, 0, 0)
	if !c.Lit(0, 4) {
		t.Error("vertical line missing")
	}
}

func TestCameraTopDown(t *testing.T) {
	cam := NewCamera(1000)
	tests := []struct {
		name string
		p    mgl64.Vec3
		x, y int
	}{
		{"origin", mgl64.Vec3{0, 0, 0}, 50, 50},
		{"plus x", mgl64.Vec3{100, 0, 0}, 60, 50},
		{"plus z", mgl64.Vec3{0, 0, 100}, 50, 60},
		{"height hidden", mgl64.Vec3{0, 300, 0}, 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := cam.Project(tt.p, 100, 100)
			if !ok || x != tt.x || y != tt.y {
				t.Errorf("got (%d, %d, %v), want (%d, %d)", x, y, ok, tt.x, tt.y)
			}
		})
	}

	if _, _, ok := cam.Project(mgl64.Vec3{800, 0, 0}, 100, 100); ok {
		t.Error("point beyond span should be off screen")
	}
}

func TestCameraTiltShowsHeight(t *testing.T) {
	cam := NewCamera(1000)
	cam.Tilt(-1.5707963267948966)
	_, y, _ := cam.Project(mgl64.Vec3{0, 100, 0}, 100, 100)
	if y == 50 {
		t.Error("tilted camera should reveal vertical offset")
	}
}

func TestRenderCube(t *testing.T) {
	c := NewCanvas(40, 20)
	RenderCube(c, NewCamera(100), octree.Centered(50))
	if !strings.ContainsFunc(c.String(), func(r rune) bool { return r > 0x2800 }) {
		t.Error("cube not drawn")
	}
}

func newTestModel(t *testing.T) (*Model, *sim.Controller) {
	t.Helper()
	p := sim.DefaultParams()
	p.Stars = 150
	p.Seed = 1
	p.Workers = 1
	ctrl, err := sim.New(p)
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(context.Background(), ctrl, 1), ctrl
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelPauseResumeAndTick(t *testing.T) {
	m, ctrl := newTestModel(t)

	m.Update(TickMsg{})
	if m.Frame().Step != 0 {
		t.Fatal("idle controller should not step")
	}

	m.Update(key(" "))
	if ctrl.State() != sim.Running {
		t.Fatalf("expected running, got %s", ctrl.State())
	}
	m.Update(TickMsg{})
	m.Update(TickMsg{})
	if m.Frame().Step != 2 {
		t.Errorf("expected step 2, got %d", m.Frame().Step)
	}

	m.Update(key(" "))
	m.Update(TickMsg{})
	if m.Frame().Step != 2 {
		t.Error("paused controller advanced")
	}
}

func TestModelTimeStepKeepsParticles(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.Update(key(" "))
	m.Update(TickMsg{})

	m.Update(key("+"))
	if got := ctrl.Params().TimeStep; got != 1.1 {
		t.Errorf("time step %v, want 1.1", got)
	}
	if ctrl.State() != sim.Running || m.Frame().Step != 1 {
		t.Error("time step change must not reset")
	}

	for i := 0; i < 20; i++ {
		m.Update(key("-"))
	}
	if got := ctrl.Params().TimeStep; got != sim.MinTimeStep {
		t.Errorf("time step %v, want clamp at %v", got, sim.MinTimeStep)
	}
}

func TestModelStarCountRegenerates(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.Update(key(" "))
	m.Update(TickMsg{})

	m.Update(key("]"))
	if ctrl.Len() != 250 {
		t.Errorf("expected 250 stars, got %d", ctrl.Len())
	}
	if ctrl.State() != sim.Running {
		t.Error("regeneration should keep the simulation running")
	}
	if m.Frame().Step != 0 || len(m.Frame().Positions) != 250 {
		t.Error("frame not replaced after regeneration")
	}

	m.Update(key("["))
	m.Update(key("["))
	if ctrl.Len() != panelMinStars {
		t.Errorf("expected clamp at %d, got %d", panelMinStars, ctrl.Len())
	}

	m.Update(key("."))
	if ctrl.Params().InitialSpeed != 6 {
		t.Errorf("initial speed %v", ctrl.Params().InitialSpeed)
	}
}

func TestModelViewAndQuit(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(key("b"))
	m.Update(key("t"))
	view := m.View()
	for _, want := range []string{"GALAXY", "IDLE", "Stars", "nebula"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
