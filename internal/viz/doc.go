// Package viz renders a running galaxy in the terminal.
//
// The viewer is a Bubble Tea program that steps a [sim.Controller] once per
// tick and draws particle positions onto a braille [Canvas] through an orbit
// [Camera]. The default view looks down the vertical axis onto the disk.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset with a freshly generated galaxy
//	+/-   - Time step multiplier (applies immediately)
//	[ ]   - Star count (regenerates the galaxy)
//	, .   - Initial speed (regenerates the galaxy)
//	x/X y/Y - Tilt and spin the camera
//	z/Z   - Zoom in/out
//	B     - Toggle world bounds
//	T     - Cycle color themes
//	Q     - Quit
package viz
