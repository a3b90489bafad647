// Package force approximates gravitational acceleration with a Barnes-Hut
// walk over an aggregated octree.
package force

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/Elib27/galaxy-simulation/internal/octree"
)

// DefaultTheta is a coarse opening angle that favours speed over accuracy.
const DefaultTheta = 2.0

// parallelThreshold is the particle count below which Evaluate stays on the
// calling goroutine.
const parallelThreshold = 256

// Evaluator computes accelerations for unit-mass particles with G = 1.
type Evaluator struct {
	Theta     float64
	Softening float64
	Workers   int

	interactions atomic.Int64
}

func NewEvaluator(theta, softening float64, workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{Theta: theta, Softening: softening, Workers: workers}
}

// AccelerationOn walks t from the root and returns the acceleration at p.
// A leaf whose center equals p is the particle itself and contributes nothing.
func (e *Evaluator) AccelerationOn(t *octree.Tree, p mgl64.Vec3) mgl64.Vec3 {
	var count int64
	a := e.walk(t, t.Root(), p, &count)
	e.interactions.Add(count)
	return a
}

func (e *Evaluator) walk(t *octree.Tree, n *octree.Node, p mgl64.Vec3, count *int64) mgl64.Vec3 {
	if n.Mass == 0 {
		return mgl64.Vec3{}
	}
	if n.IsLeaf() {
		if n.Center == p {
			return mgl64.Vec3{}
		}
		*count++
		return e.pointMass(n, p)
	}

	d := n.Center.Sub(p).Len()
	if d > 0 && n.Bounds.Side/d < e.Theta {
		*count++
		return e.pointMass(n, p)
	}

	var acc mgl64.Vec3
	for k := int32(0); k < 8; k++ {
		acc = acc.Add(e.walk(t, t.Node(n.FirstChild+k), p, count))
	}
	return acc
}

// pointMass applies the softened law normalize(c-p) * m / (d^2 + eps).
func (e *Evaluator) pointMass(n *octree.Node, p mgl64.Vec3) mgl64.Vec3 {
	diff := n.Center.Sub(p)
	d2 := diff.LenSqr()
	d := math.Sqrt(d2)
	return diff.Mul(n.Mass / ((d2 + e.Softening) * d))
}

// Evaluate fills acc[i] with the acceleration on positions[i]. All reads go
// against the frozen tree and the positions snapshot; it returns only after
// every worker has finished.
func (e *Evaluator) Evaluate(ctx context.Context, t *octree.Tree, positions, acc []mgl64.Vec3) error {
	n := len(positions)
	if n < parallelThreshold || e.Workers <= 1 {
		for i := 0; i < n; i++ {
			if i%parallelThreshold == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			acc[i] = e.AccelerationOn(t, positions[i])
		}
		return nil
	}

	workers := e.Workers
	chunk := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		g.Go(func() error {
			var count int64
			for i := start; i < end; i++ {
				if (i-start)%parallelThreshold == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				acc[i] = e.walk(t, t.Root(), positions[i], &count)
			}
			e.interactions.Add(count)
			return nil
		})
	}
	return g.Wait()
}

// Interactions returns and clears the number of point-mass terms summed
// since the previous call.
func (e *Evaluator) Interactions() int64 {
	return e.interactions.Swap(0)
}
