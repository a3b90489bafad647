// Package export renders simulation output as standalone SVG documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/viz"
)

var ErrTooFewPoints = errors.New("export: need at least two values")

const background = "#0a0a0a"

// Stars writes a size x size SVG of positions as seen through cam. It returns
// the number of stars that landed inside the image.
func Stars(w io.Writer, cam *viz.Camera, positions []mgl64.Vec3, size int, fill string) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("export: invalid image size %d", size)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, size, size, size, size, background, fill))

	dotRadius := math.Max(0.5, float64(size)/1000)
	visible := 0
	for _, p := range positions {
		x, y, ok := cam.Project(p, size, size)
		if !ok {
			continue
		}
		visible++
		sb.WriteString(fmt.Sprintf(`<circle cx="%d.5" cy="%d.5" r="%.1f"/>
`, x, y, dotRadius))
	}

	sb.WriteString("</g>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return visible, err
}

// Series writes values as an SVG line chart scaled to fill width x height.
func Series(w io.Writer, values []float64, width, height int, stroke string) error {
	if len(values) < 2 {
		return ErrTooFewPoints
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	hi += span * 0.1
	span = hi - lo
	last := float64(len(values) - 1)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, stroke))

	for i, v := range values {
		x := float64(i) / last * float64(width)
		y := float64(height) - (v-lo)/span*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>
`)
	_, err := io.WriteString(w, sb.String())
	return err
}
