// Package easing solves cubic-bezier timing curves anchored at (0,0) and (1,1).
package easing

import (
	"fmt"
	"math"
)

const (
	newtonIterations    = 8
	newtonMinSlope      = 1e-6
	subdivisionMaxIters = 10
	precision           = 1e-7
)

// Curve is a monotonic cubic bezier defined by its two inner control points.
type Curve struct {
	X1, Y1, X2, Y2 float64

	// polynomial coefficients for x(t) and y(t)
	ax, bx, cx float64
	ay, by, cy float64
}

// Common curves.
var (
	Linear  = MustCurve(0, 0, 1, 1)
	Ease    = MustCurve(0.25, 0.1, 0.25, 1)
	EaseOut = MustCurve(0, 0, 0.58, 1)
	// Reel decelerates hard at the end so the pinned cell creeps under the selector.
	Reel = MustCurve(0.12, 0.8, 0.2, 1)
)

// NewCurve validates the control points. X coordinates must lie in [0, 1] for
// x(t) to stay monotonic.
func NewCurve(x1, y1, x2, y2 float64) (Curve, error) {
	for _, v := range []float64{x1, y1, x2, y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Curve{}, fmt.Errorf("easing: control points must be finite")
		}
	}
	if x1 < 0 || x1 > 1 || x2 < 0 || x2 > 1 {
		return Curve{}, fmt.Errorf("easing: x control points must be in [0, 1], got %v and %v", x1, x2)
	}

	c := Curve{X1: x1, Y1: y1, X2: x2, Y2: y2}
	c.cx = 3 * x1
	c.bx = 3*(x2-x1) - c.cx
	c.ax = 1 - c.cx - c.bx
	c.cy = 3 * y1
	c.by = 3*(y2-y1) - c.cy
	c.ay = 1 - c.cy - c.by
	return c, nil
}

// MustCurve is NewCurve for package-level presets. It panics on invalid input.
func MustCurve(x1, y1, x2, y2 float64) Curve {
	c, err := NewCurve(x1, y1, x2, y2)
	if err != nil {
		panic(err)
	}
	return c
}

// Solve returns the eased value for progress t. Inputs outside [0, 1] are
// clamped; the endpoints map exactly to 0 and 1.
func (c Curve) Solve(t float64) float64 {
	if t <= 0 || math.IsNaN(t) {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return c.sampleY(c.solveX(t))
}

func (c Curve) sampleX(t float64) float64 { return ((c.ax*t+c.bx)*t + c.cx) * t }
func (c Curve) sampleY(t float64) float64 { return ((c.ay*t+c.by)*t + c.cy) * t }
func (c Curve) slopeX(t float64) float64  { return (3*c.ax*t+2*c.bx)*t + c.cx }

// solveX finds the curve parameter whose x equals x.
func (c Curve) solveX(x float64) float64 {
	t := x
	for i := 0; i < newtonIterations; i++ {
		dx := c.sampleX(t) - x
		if math.Abs(dx) < precision {
			return t
		}
		d := c.slopeX(t)
		if math.Abs(d) < newtonMinSlope {
			break
		}
		t -= dx / d
	}

	lo, hi := 0.0, 1.0
	t = x
	for i := 0; i < subdivisionMaxIters; i++ {
		sx := c.sampleX(t)
		if math.Abs(sx-x) < precision {
			return t
		}
		if x > sx {
			lo = t
		} else {
			hi = t
		}
		t = lo + (hi-lo)/2
	}
	return t
}
