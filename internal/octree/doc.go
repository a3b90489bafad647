// Package octree provides the spatial index used for Barnes-Hut force
// approximation.
//
// A [Tree] is built over a fixed world [Cube] from a snapshot of particle
// positions. Every node covers one cube; a leaf holds at most one particle and
// an internal node owns exactly eight children, one per octant:
//
//   - [New]: empty root over the world cube
//   - [Tree.Insert]: route one particle down to a free leaf, subdividing as needed
//   - [Tree.Aggregate]: post-order mass and center-of-mass pass
//   - [Build]: New + Insert for every particle + Aggregate
//
// # Capacity Limits
//
// Two cases silently leave a particle out of a frame's tree:
//
//	// outside the root cube: Insert returns false, Stats().Outside grows
//	// at or below the minimum cell size: Insert returns false, Stats().Dropped grows
//
// Nodes live in a single arena slice; children are eight consecutive slots.
// Trees are rebuilt every step and are read-only once aggregated, so any
// number of goroutines may traverse an aggregated tree concurrently.
package octree
