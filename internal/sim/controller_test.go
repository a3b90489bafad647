package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Elib27/galaxy-simulation/internal/galaxy"
)

func mustSystem(pos, vel []mgl64.Vec3) *galaxy.System {
	s, err := galaxy.New(pos, vel)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Controller", func() {
	var (
		ctx    context.Context
		params Params
	)

	BeforeEach(func() {
		ctx = context.Background()
		params = DefaultParams()
		params.Stars = 200
		params.Seed = 42
		params.Workers = 1
	})

	Describe("lifecycle", func() {
		It("starts idle with the requested particle count", func() {
			c, err := New(params)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.State()).To(Equal(Idle))
			Expect(c.Len()).To(Equal(200))
			Expect(c.Seed()).To(Equal(int64(42)))
		})

		It("keeps generated particles inside the galaxy radius", func() {
			c, err := New(params)
			Expect(err).NotTo(HaveOccurred())
			for _, p := range c.Positions() {
				Expect(p.Len()).To(BeNumerically("<=", params.Galaxy.Diameter/2))
			}
		})

		It("toggles between running and paused", func() {
			c, _ := New(params)
			Expect(c.Toggle()).To(Equal(Running))
			Expect(c.Toggle()).To(Equal(Paused))
			Expect(c.Toggle()).To(Equal(Running))

			Expect(c.Pause()).To(Succeed())
			Expect(c.State()).To(Equal(Paused))
			c.Resume()
			Expect(c.State()).To(Equal(Running))
		})

		It("refuses to pause an idle controller", func() {
			c, _ := New(params)
			Expect(c.Pause()).To(MatchError(ErrInvalidState))
			Expect(c.State()).To(Equal(Idle))
		})

		It("returns to idle on reset", func() {
			c, _ := New(params)
			c.Resume()
			_, ok, err := c.Step(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			params.Stars = 300
			Expect(c.Reset(params)).To(Succeed())
			Expect(c.State()).To(Equal(Idle))
			Expect(c.Len()).To(Equal(300))
			Expect(c.Snapshot().Step).To(BeZero())
		})

		It("keeps running across a restart", func() {
			c, _ := New(params)
			c.Resume()
			_, _, _ = c.Step(ctx, 1)

			params.Stars = 80
			Expect(c.Restart(params)).To(Succeed())
			Expect(c.State()).To(Equal(Running))
			Expect(c.Len()).To(Equal(80))
			Expect(c.Snapshot().Step).To(BeZero())

			Expect(c.Pause()).To(Succeed())
			Expect(c.Restart(params)).To(Succeed())
			Expect(c.State()).To(Equal(Idle))
		})

		It("rejects out of range parameters and keeps the old state", func() {
			c, _ := New(params)
			c.Resume()

			bad := params
			bad.InitialSpeed = 51
			Expect(c.Reset(bad)).To(MatchError(ErrParameterBounds))
			Expect(c.State()).To(Equal(Running))
			Expect(c.Len()).To(Equal(200))

			_, err := New(Params{})
			Expect(err).To(MatchError(ErrParameterBounds))
		})
	})

	Describe("stepping", func() {
		It("is a no-op while idle or paused", func() {
			c, _ := New(params)
			before := c.Positions()

			_, ok, err := c.Step(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			c.Resume()
			Expect(c.Pause()).To(Succeed())
			_, ok, err = c.Step(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(c.Positions()).To(Equal(before))
		})

		It("rejects a negative dt", func() {
			c, _ := New(params)
			c.Resume()
			_, _, err := c.Step(ctx, -1)
			Expect(err).To(MatchError(ErrParameterBounds))
		})

		It("pulls two bodies together with inverse square magnitude", func() {
			params.Theta = 0
			params.Softening = 0
			sys := mustSystem(
				[]mgl64.Vec3{{10, 0, 0}, {-10, 0, 0}},
				[]mgl64.Vec3{{}, {}},
			)
			c, err := NewWithSystem(params, sys)
			Expect(err).NotTo(HaveOccurred())
			c.Resume()

			f, ok, err := c.Step(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			Expect(f.Velocities[0][0]).To(BeNumerically("~", -1.0/400, 1e-15))
			Expect(f.Velocities[1][0]).To(BeNumerically("~", 1.0/400, 1e-15))
			Expect(f.Velocities[0]).To(Equal(f.Velocities[1].Mul(-1)))
			Expect(f.Positions[0][0]).To(BeNumerically("~", 10-1.0/400, 1e-12))
			Expect(f.Stats.Interactions).To(Equal(int64(2)))
			Expect(f.Stats.Tree.Stored).To(Equal(2))
		})

		It("moves particles in straight lines when no force acts", func() {
			// Every particle lies outside a tiny root cube, so the tree is
			// empty and all accelerations vanish.
			params.BoundSize = 1
			pos := []mgl64.Vec3{{100, 0, 0}, {0, 200, -50}, {-300, 4, 4}}
			vel := []mgl64.Vec3{{1, 2, 3}, {-0.5, 0, 0}, {0, 0, 7}}
			c, err := NewWithSystem(params, mustSystem(pos, vel))
			Expect(err).NotTo(HaveOccurred())
			c.Resume()
			Expect(c.SetTimeStep(2)).To(Succeed())

			f, ok, err := c.Step(ctx, 0.25)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(f.Dt).To(Equal(0.5))
			Expect(f.Stats.Tree.Outside).To(Equal(3))
			for i := range pos {
				Expect(f.Positions[i]).To(Equal(pos[i].Add(vel[i].Mul(0.5))))
				Expect(f.Velocities[i]).To(Equal(vel[i]))
			}
		})

		It("applies a new time step without resetting", func() {
			c, _ := New(params)
			c.Resume()
			f1, _, _ := c.Step(ctx, 1)
			Expect(f1.Dt).To(Equal(1.0))

			Expect(c.SetTimeStep(3)).To(Succeed())
			f2, _, err := c.Step(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(f2.Step).To(Equal(2))
			Expect(f2.Dt).To(Equal(3.0))
			Expect(f2.Time).To(Equal(4.0))
			Expect(c.State()).To(Equal(Running))

			Expect(c.SetTimeStep(0.01)).To(MatchError(ErrParameterBounds))
		})

		It("publishes copies of the particle state", func() {
			c, _ := New(params)
			c.Resume()
			f, _, _ := c.Step(ctx, 1)
			f.Positions[0] = mgl64.Vec3{1e9, 1e9, 1e9}
			Expect(c.Positions()[0]).NotTo(Equal(f.Positions[0]))
			Expect(f.Buffer()).To(HaveLen(3 * 200))
		})

		It("notifies observers with every frame", func() {
			var frames []int
			c, _ := New(params, WithObserver(ObserverFunc(func(f Frame) {
				frames = append(frames, f.Step)
			})))
			c.Resume()
			for i := 0; i < 3; i++ {
				_, _, err := c.Step(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(frames).To(Equal([]int{1, 2, 3}))
		})

		It("leaves state untouched when the context is canceled", func() {
			c, _ := New(params)
			c.Resume()
			before := c.Snapshot()

			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, ok, err := c.Step(canceled, 1)
			Expect(ok).To(BeFalse())
			Expect(err).To(MatchError(ErrContextCanceled))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			var stepErr *StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(BeZero())

			after := c.Snapshot()
			Expect(after.Positions).To(Equal(before.Positions))
			Expect(after.Velocities).To(Equal(before.Velocities))
			Expect(after.Step).To(BeZero())
		})
	})

	Describe("parameter changes", func() {
		It("applies solver settings in place", func() {
			c, _ := New(params)
			c.Resume()
			_, _, _ = c.Step(ctx, 1)

			next := c.Params()
			next.Theta = 0.5
			next.Softening = 10
			Expect(c.SetParams(next)).To(Succeed())
			Expect(c.State()).To(Equal(Running))
			Expect(c.Snapshot().Step).To(Equal(1))
			Expect(c.Params().Theta).To(Equal(0.5))
		})

		It("regenerates the galaxy when count or speed change", func() {
			c, _ := New(params)
			c.Resume()

			next := c.Params()
			next.InitialSpeed = 20
			Expect(c.SetParams(next)).To(Succeed())
			Expect(c.State()).To(Equal(Idle))

			next.Stars = 50
			Expect(c.SetParams(next)).To(Succeed())
			Expect(c.Len()).To(Equal(50))
		})

		It("generates the same galaxy for the same seed", func() {
			a, _ := New(params)
			b, _ := New(params)
			Expect(a.Positions()).To(Equal(b.Positions()))
		})
	})

	Describe("concurrency", func() {
		It("never mixes a reset into a running step", func() {
			c, _ := New(params)
			c.Resume()
			other := params
			other.Stars = 120

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 20; i++ {
					f, ok, err := c.Step(ctx, 1)
					Expect(err).NotTo(HaveOccurred())
					if ok {
						Expect(len(f.Positions)).To(Or(Equal(200), Equal(120)))
						Expect(f.Velocities).To(HaveLen(len(f.Positions)))
					}
				}
			}()
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 10; i++ {
					p := params
					if i%2 == 0 {
						p = other
					}
					Expect(c.Reset(p)).To(Succeed())
					c.Resume()
				}
			}()
			wg.Wait()
		})
	})
})
