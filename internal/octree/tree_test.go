package octree

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEps = 1e-9

func randomPositions(rng *rand.Rand, n int, half float64) []mgl64.Vec3 {
	pos := make([]mgl64.Vec3, n)
	for i := range pos {
		pos[i] = mgl64.Vec3{
			(rng.Float64()*2 - 1) * half,
			(rng.Float64()*2 - 1) * half,
			(rng.Float64()*2 - 1) * half,
		}
	}
	return pos
}

func TestCubeContainsHalfOpen(t *testing.T) {
	c := Cube{Origin: mgl64.Vec3{0, 0, 0}, Side: 1}

	tests := []struct {
		name string
		p    mgl64.Vec3
		want bool
	}{
		{"origin corner", mgl64.Vec3{0, 0, 0}, true},
		{"inside", mgl64.Vec3{0.5, 0.5, 0.5}, true},
		{"upper x face", mgl64.Vec3{1, 0.5, 0.5}, false},
		{"upper z face", mgl64.Vec3{0.5, 0.5, 1}, false},
		{"below", mgl64.Vec3{-0.001, 0.5, 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Contains(tt.p))
		})
	}
}

func TestCubeOctantsPartitionParent(t *testing.T) {
	c := Centered(8)
	rng := rand.New(rand.NewSource(3))
	for _, p := range randomPositions(rng, 200, 4) {
		hits := 0
		for k := 0; k < 8; k++ {
			if c.Octant(k).Contains(p) {
				hits++
			}
		}
		assert.Equal(t, 1, hits, "point %v", p)
	}
	assert.Equal(t, mgl64.Vec3{0, -4, 0}, c.Octant(5).Origin)
	assert.Equal(t, 4.0, c.Octant(5).Side)
}

func TestRootMassEqualsCount(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, n := range []int{1, 2, 17, 500} {
		pos := randomPositions(rng, n, 100)
		tree := Build(Centered(400), 0.01, pos)

		assert.Equal(t, float64(n), tree.Root().Mass, "n=%d", n)
		assert.Equal(t, n, tree.Stats().Stored)
	}
}

func TestRootCenterIsMean(t *testing.T) {
	pos := []mgl64.Vec3{
		{10, 0, 0},
		{-10, 4, 0},
		{3, -7, 12},
		{1, 1, -30},
	}
	tree := Build(Centered(100), 0.01, pos)

	var mean mgl64.Vec3
	for _, p := range pos {
		mean = mean.Add(p)
	}
	mean = mean.Mul(1.0 / float64(len(pos)))

	root := tree.Root()
	require.Equal(t, 4.0, root.Mass)
	assert.True(t, root.Center.ApproxEqualThreshold(mean, testEps), "center %v, mean %v", root.Center, mean)
}

func TestInternalMassIsSumOfChildren(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	tree := Build(Centered(64), 0.01, randomPositions(rng, 300, 32))

	for i := 0; i < tree.Len(); i++ {
		n := tree.Node(int32(i))
		if n.IsLeaf() {
			if n.HasParticle() {
				assert.Equal(t, 1.0, n.Mass)
				assert.Equal(t, tree.Position(n.Particle), n.Center)
			} else {
				assert.Zero(t, n.Mass)
			}
			continue
		}
		assert.False(t, n.HasParticle(), "internal node holds a particle")
		sum := 0.0
		for k := int32(0); k < 8; k++ {
			sum += tree.Node(n.FirstChild + k).Mass
		}
		assert.Equal(t, sum, n.Mass)
	}
}

func TestInsertOutsideRootHasNoSideEffect(t *testing.T) {
	pos := []mgl64.Vec3{
		{1, 1, 1},
		{-2, 3, -1},
		{4, -4, 2},
		{500, 0, 0},
	}
	tree := New(Centered(20), 0.01, pos)
	for i := 0; i < 3; i++ {
		require.True(t, tree.Insert(i))
	}
	tree.Aggregate()

	before := make([]Node, tree.Len())
	for i := range before {
		before[i] = *tree.Node(int32(i))
	}

	assert.False(t, tree.Insert(3))
	tree.Aggregate()

	require.Equal(t, len(before), tree.Len())
	for i := range before {
		assert.Equal(t, before[i], *tree.Node(int32(i)))
	}
	assert.Equal(t, 1, tree.Stats().Outside)
	assert.Equal(t, 3, tree.Stats().Stored)
}

func TestUpperFaceIsOutside(t *testing.T) {
	pos := []mgl64.Vec3{{10, 0, 0}}
	tree := Build(Centered(20), 0.01, pos)

	assert.Zero(t, tree.Root().Mass)
	assert.Equal(t, 1, tree.Stats().Outside)
}

func TestMinimumCellSizeDropsParticles(t *testing.T) {
	// Two particles closer than the minimum cell size can never be separated.
	pos := []mgl64.Vec3{
		{0.001, 0.001, 0.001},
		{0.002, 0.002, 0.002},
	}
	tree := Build(Centered(1), 0.1, pos)

	s := tree.Stats()
	assert.Equal(t, 2, s.Dropped)
	assert.Equal(t, 0, s.Stored)
	assert.Zero(t, tree.Root().Mass)
	assert.Equal(t, mgl64.Vec3{}, tree.Root().Center)
}

func TestInsertIntoMinimumSizedRootIsNoop(t *testing.T) {
	pos := []mgl64.Vec3{{0, 0, 0}}
	tree := New(Centered(0.01), 0.01, pos)

	assert.False(t, tree.Insert(0))
	assert.Equal(t, 1, tree.Stats().Dropped)
	assert.True(t, tree.Root().IsLeaf())
	assert.False(t, tree.Root().HasParticle())
}

func TestSubdivisionMovesHeldParticle(t *testing.T) {
	pos := []mgl64.Vec3{
		{-1, -1, -1},
		{1, 1, 1},
	}
	tree := New(Centered(4), 0.01, pos)

	require.True(t, tree.Insert(0))
	assert.True(t, tree.Root().HasParticle())

	require.True(t, tree.Insert(1))
	root := tree.Root()
	assert.False(t, root.HasParticle())
	assert.False(t, root.IsLeaf())
	assert.Equal(t, 9, tree.Len())

	assert.Equal(t, int32(0), tree.Node(root.FirstChild+0).Particle)
	assert.Equal(t, int32(1), tree.Node(root.FirstChild+7).Particle)
}

func TestAggregateIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	tree := Build(Centered(50), 0.01, randomPositions(rng, 64, 20))
	mass, center := tree.Root().Mass, tree.Root().Center

	tree.Aggregate()
	assert.Equal(t, mass, tree.Root().Mass)
	assert.True(t, center.ApproxEqualThreshold(tree.Root().Center, testEps))
}

func TestStatsDepth(t *testing.T) {
	pos := []mgl64.Vec3{
		{0.1, 0.1, 0.1},
		{0.2, 0.2, 0.2},
	}
	tree := Build(Centered(8), 0.01, pos)

	s := tree.Stats()
	assert.Equal(t, 2, s.Stored)
	assert.Greater(t, s.MaxDepth, 1)
	assert.Equal(t, s.Nodes, 1+8*(s.Nodes-s.Leaves))
}

func BenchmarkBuild1000(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	pos := randomPositions(rng, 1000, 500)
	bounds := Centered(5000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(bounds, 0.01, pos)
	}
}
