package sim

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/galaxy"
	"github.com/Elib27/galaxy-simulation/internal/octree"
)

// State is the controller lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Stats describes the work done by one step.
type Stats struct {
	Tree         octree.Stats
	Interactions int64
	Duration     time.Duration
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("tree", s.Tree),
		slog.Int64("interactions", s.Interactions),
		slog.Duration("duration", s.Duration),
	)
}

// Frame is the published result of a step. Positions and Velocities are
// copies owned by the receiver.
type Frame struct {
	Step       int
	Time       float64
	Dt         float64
	Positions  []mgl64.Vec3
	Velocities []mgl64.Vec3
	Stats      Stats
}

// Buffer flattens the frame positions into x,y,z float32 triples.
func (f Frame) Buffer() []float32 {
	return galaxy.Buffer(f.Positions, nil)
}

// Observer receives every published frame. OnFrame runs on the stepping
// goroutine after the controller lock is released.
type Observer interface {
	OnFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) OnFrame(f Frame) { fn(f) }
