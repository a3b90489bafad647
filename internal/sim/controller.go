package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/force"
	"github.com/Elib27/galaxy-simulation/internal/galaxy"
	"github.com/Elib27/galaxy-simulation/internal/integrators"
	"github.com/Elib27/galaxy-simulation/internal/octree"
)

// Controller owns the particle system and runs one Barnes-Hut step at a
// time: build, aggregate, evaluate, integrate, publish. All exported methods
// are safe for concurrent use; Step and Reset never interleave.
type Controller struct {
	mu sync.Mutex

	params Params
	state  State
	system *galaxy.System
	seed   int64

	eval  *force.Evaluator
	integ *integrators.SymplecticEuler
	acc   []mgl64.Vec3
	tree  *octree.Tree

	step int
	time float64

	observers []Observer
	logger    *slog.Logger
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// New validates params and generates the initial galaxy. The controller
// starts Idle.
func New(params Params, opts ...Option) (*Controller, error) {
	c := &Controller{
		integ:  integrators.NewSymplecticEuler(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reset(params); err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithSystem is New with an explicit particle set instead of a generated
// galaxy.
func NewWithSystem(params Params, system *galaxy.System, opts ...Option) (*Controller, error) {
	c := &Controller{
		integ:  integrators.NewSymplecticEuler(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.ResetWith(params, system); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Reset regenerates the galaxy from params and returns to Idle.
func (c *Controller) Reset(params Params) error {
	system, seed, err := generate(params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.install(params, system, seed)
	return nil
}

// Restart regenerates the galaxy like Reset but keeps a running simulation
// running, as the parameter panel does.
func (c *Controller) Restart(params Params) error {
	system, seed, err := generate(params)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	running := c.state == Running
	c.install(params, system, seed)
	if running {
		c.transition(Running)
	}
	return nil
}

func generate(params Params) (*galaxy.System, int64, error) {
	if err := params.Validate(); err != nil {
		return nil, 0, err
	}
	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return galaxy.Generate(rng, params.Galaxy, params.Stars, params.InitialSpeed), seed, nil
}

// ResetWith installs a copy of system. params.Stars is taken from the system.
func (c *Controller) ResetWith(params Params, system *galaxy.System) error {
	if system == nil {
		return fmt.Errorf("%w: nil particle system", ErrInvalidState)
	}
	params.Stars = system.Len()
	if err := params.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.install(params, system.Clone(), params.Seed)
	return nil
}

func (c *Controller) install(params Params, system *galaxy.System, seed int64) {
	c.params = params
	c.system = system
	c.seed = seed
	c.eval = force.NewEvaluator(params.Theta, params.Softening, params.Workers)
	c.acc = make([]mgl64.Vec3, system.Len())
	c.tree = nil
	c.step = 0
	c.time = 0
	c.state = Idle

	c.logger.Info("simulation reset",
		"stars", system.Len(),
		"initial_speed", params.InitialSpeed,
		"theta", params.Theta,
		"softening", params.Softening,
		"seed", seed,
	)
}

// Resume starts or continues stepping.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transition(Running)
}

// Pause stops stepping. Pausing an Idle controller is an error.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Idle:
		return fmt.Errorf("%w: cannot pause while %s", ErrInvalidState, c.state)
	case Running:
		c.transition(Paused)
	}
	return nil
}

// Toggle flips between running and paused, starting an Idle controller.
func (c *Controller) Toggle() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		c.transition(Paused)
	} else {
		c.transition(Running)
	}
	return c.state
}

func (c *Controller) transition(to State) {
	if c.state == to {
		return
	}
	c.logger.Debug("state transition", "from", c.state, "to", to)
	c.state = to
}

// SetTimeStep changes the step multiplier. It takes effect on the next step.
func (c *Controller) SetTimeStep(m float64) error {
	if err := validateTimeStep(m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.TimeStep = m
	return nil
}

// SetParams applies params. Changes that alter the generated galaxy go
// through Reset; the rest are applied in place and keep the current state.
func (c *Controller) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.params.needsReset(params) {
		c.mu.Unlock()
		return c.Reset(params)
	}
	defer c.mu.Unlock()
	c.params = params
	c.eval = force.NewEvaluator(params.Theta, params.Softening, params.Workers)
	c.logger.Debug("parameters updated", "theta", params.Theta, "softening", params.Softening, "time_step", params.TimeStep)
	return nil
}

// Step advances the simulation by dt scaled by the time-step multiplier. It
// returns false without touching state unless the controller is Running. If
// ctx is canceled during force evaluation no particle is moved.
func (c *Controller) Step(ctx context.Context, dt float64) (Frame, bool, error) {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return Frame{}, false, fmt.Errorf("%w: dt %g", ErrParameterBounds, dt)
	}

	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return Frame{}, false, nil
	}

	frame, err := c.advance(ctx, dt)
	observers := c.observers
	c.mu.Unlock()
	if err != nil {
		return Frame{}, false, err
	}

	for _, o := range observers {
		o.OnFrame(frame)
	}
	return frame, true, nil
}

func (c *Controller) advance(ctx context.Context, dt float64) (Frame, error) {
	start := time.Now()
	pos := c.system.Positions()
	vel := c.system.Velocities()

	bounds := octree.Centered(c.params.BoundSize)
	tree := octree.Build(bounds, c.params.MinCellSize, pos, octree.WithLogger(c.logger))

	if err := c.eval.Evaluate(ctx, tree, pos, c.acc); err != nil {
		c.eval.Interactions()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrContextCanceled, err)
		}
		return Frame{}, &StepError{Step: c.step, Time: c.time, Wrapped: err}
	}

	eff := dt * c.params.TimeStep
	if err := c.integ.Step(pos, vel, c.acc, eff); err != nil {
		return Frame{}, &StepError{Step: c.step, Time: c.time, Wrapped: fmt.Errorf("%w: %w", ErrDimensionMismatch, err)}
	}

	c.tree = tree
	c.step++
	c.time += eff

	frame := c.snapshot()
	frame.Dt = eff
	frame.Stats = Stats{
		Tree:         tree.Stats(),
		Interactions: c.eval.Interactions(),
		Duration:     time.Since(start),
	}
	c.logger.Debug("step", "step", frame.Step, "stats", frame.Stats)
	return frame, nil
}

func (c *Controller) snapshot() Frame {
	f := Frame{
		Step:       c.step,
		Time:       c.time,
		Positions:  make([]mgl64.Vec3, c.system.Len()),
		Velocities: make([]mgl64.Vec3, c.system.Len()),
	}
	copy(f.Positions, c.system.Positions())
	copy(f.Velocities, c.system.Velocities())
	return f
}

// Snapshot returns the current particle state as a frame without stepping.
func (c *Controller) Snapshot() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.snapshot()
	if c.tree != nil {
		f.Stats.Tree = c.tree.Stats()
	}
	return f
}

// Positions returns a copy of the current positions.
func (c *Controller) Positions() []mgl64.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mgl64.Vec3, c.system.Len())
	copy(out, c.system.Positions())
	return out
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Seed returns the seed the current galaxy was generated from.
func (c *Controller) Seed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.system.Len()
}
