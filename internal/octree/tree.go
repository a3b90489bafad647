package octree

import (
	"context"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
)

const none int32 = -1

// Node is one cube of the tree. A node is either a leaf (FirstChild < 0)
// holding zero or one particle, or an internal node whose eight children
// occupy arena slots FirstChild..FirstChild+7.
type Node struct {
	Bounds     Cube
	Mass       float64
	Center     mgl64.Vec3
	Particle   int32
	FirstChild int32
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.FirstChild < 0 }

// HasParticle reports whether the node directly holds a particle.
func (n *Node) HasParticle() bool { return n.Particle >= 0 }

// Tree is an octree over a snapshot of particle positions.
type Tree struct {
	nodes     []Node
	positions []mgl64.Vec3
	minCell   float64
	logger    *slog.Logger

	stored  int
	dropped int
	outside int
}

type Option func(*Tree)

// WithLogger sets the logger used for capacity warnings.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// New returns an empty tree over bounds. positions is the snapshot that
// particle indices passed to Insert refer to; the tree never writes to it.
func New(bounds Cube, minCell float64, positions []mgl64.Vec3, opts ...Option) *Tree {
	t := &Tree{
		nodes:     make([]Node, 1, 1+len(positions)*2),
		positions: positions,
		minCell:   minCell,
		logger:    slog.Default(),
	}
	t.nodes[0] = newNode(bounds)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Build creates a tree over bounds, inserts every position and aggregates.
func Build(bounds Cube, minCell float64, positions []mgl64.Vec3, opts ...Option) *Tree {
	t := New(bounds, minCell, positions, opts...)
	for i := range positions {
		t.Insert(i)
	}
	t.Aggregate()
	return t
}

func newNode(bounds Cube) Node {
	return Node{Bounds: bounds, Particle: none, FirstChild: none}
}

// Root returns the root node.
func (t *Tree) Root() *Node { return &t.nodes[0] }

// Node returns the node at arena index i.
func (t *Tree) Node(i int32) *Node { return &t.nodes[i] }

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Position returns the snapshot position of particle i.
func (t *Tree) Position(i int32) mgl64.Vec3 { return t.positions[i] }

// Insert places particle i into the tree. It returns false when the particle
// lies outside the root cube or reaches a cell at or below the minimum size.
// A particle already resting in the leaf that had to split is dropped along
// with it when its new cell is too small as well.
func (t *Tree) Insert(i int) bool {
	p := t.positions[i]
	if !t.nodes[0].Bounds.Contains(p) {
		t.outside++
		return false
	}
	if !t.insert(0, int32(i)) {
		return false
	}
	t.stored++
	return true
}

func (t *Tree) insert(n int32, i int32) bool {
	p := t.positions[i]
	if !t.nodes[n].Bounds.Contains(p) {
		return false
	}
	if t.nodes[n].Bounds.Side <= t.minCell {
		t.dropped++
		if t.logger.Enabled(context.Background(), slog.LevelDebug) {
			t.logger.Debug("octree: minimum cell size reached", "particle", i, "side", t.nodes[n].Bounds.Side)
		}
		return false
	}

	if t.nodes[n].Particle == none {
		if t.nodes[n].FirstChild == none {
			t.nodes[n].Particle = i
			return true
		}
		return t.insertChildren(n, i)
	}

	held := t.nodes[n].Particle
	t.subdivide(n)
	t.nodes[n].Particle = none
	if !t.insertChildren(n, held) {
		t.stored--
	}
	return t.insertChildren(n, i)
}

// insertChildren offers particle i to each child in turn; bounds are
// disjoint so at most one accepts.
func (t *Tree) insertChildren(n int32, i int32) bool {
	first := t.nodes[n].FirstChild
	for k := int32(0); k < 8; k++ {
		if t.nodes[first+k].Bounds.Contains(t.positions[i]) {
			return t.insert(first+k, i)
		}
	}
	return false
}

func (t *Tree) subdivide(n int32) {
	first := int32(len(t.nodes))
	bounds := t.nodes[n].Bounds
	for k := 0; k < 8; k++ {
		t.nodes = append(t.nodes, newNode(bounds.Octant(k)))
	}
	t.nodes[n].FirstChild = first
}

// Aggregate computes the mass and center of mass of every node, children
// before parents. Empty subtrees keep zero mass and are skipped in a parent's
// weighted mean. Calling Aggregate again recomputes from scratch.
func (t *Tree) Aggregate() {
	t.aggregate(0)
}

func (t *Tree) aggregate(n int32) {
	node := &t.nodes[n]
	node.Mass = 0
	node.Center = mgl64.Vec3{}

	if node.FirstChild == none {
		if node.Particle != none {
			node.Mass = 1
			node.Center = t.positions[node.Particle]
		}
		return
	}

	first := node.FirstChild
	var mass float64
	var weighted mgl64.Vec3
	for k := int32(0); k < 8; k++ {
		t.aggregate(first + k)
		child := &t.nodes[first+k]
		if child.Mass == 0 {
			continue
		}
		mass += child.Mass
		weighted = weighted.Add(child.Center.Mul(child.Mass))
	}

	node = &t.nodes[n]
	node.Mass = mass
	if mass > 0 {
		node.Center = weighted.Mul(1 / mass)
	}
}

// Stats summarises the shape of a tree and the particles it left out.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	Stored   int
	Dropped  int
	Outside  int
}

// LogValue implements slog.LogValuer for structured logging.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("nodes", s.Nodes),
		slog.Int("leaves", s.Leaves),
		slog.Int("max_depth", s.MaxDepth),
		slog.Int("stored", s.Stored),
		slog.Int("dropped", s.Dropped),
		slog.Int("outside", s.Outside),
	)
}

// Stats walks the tree and reports its shape.
func (t *Tree) Stats() Stats {
	s := Stats{
		Nodes:   len(t.nodes),
		Stored:  t.stored,
		Dropped: t.dropped,
		Outside: t.outside,
	}
	t.walk(0, 0, &s)
	return s
}

func (t *Tree) walk(n int32, depth int, s *Stats) {
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
	first := t.nodes[n].FirstChild
	if first == none {
		s.Leaves++
		return
	}
	for k := int32(0); k < 8; k++ {
		t.walk(first+k, depth+1, s)
	}
}
