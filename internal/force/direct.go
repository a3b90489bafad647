package force

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Direct sums every pairwise interaction with the same softened law as the
// tree walk. It is O(N^2) and exists as the accuracy reference.
func Direct(positions []mgl64.Vec3, softening float64, acc []mgl64.Vec3) {
	for i, p := range positions {
		var a mgl64.Vec3
		for j, q := range positions {
			if i == j {
				continue
			}
			diff := q.Sub(p)
			d2 := diff.LenSqr()
			if d2 == 0 {
				continue
			}
			a = a.Add(diff.Mul(1 / ((d2 + softening) * math.Sqrt(d2))))
		}
		acc[i] = a
	}
}

// RelativeError returns the mean of |approx-exact| / |exact| over all
// particles with a non-zero exact acceleration.
func RelativeError(approx, exact []mgl64.Vec3) float64 {
	sum, n := 0.0, 0
	for i := range exact {
		l := exact[i].Len()
		if l == 0 {
			continue
		}
		sum += approx[i].Sub(exact[i]).Len() / l
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
