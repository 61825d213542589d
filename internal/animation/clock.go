package animation

import (
	"math"
	"time"

	"github.com/MJE43/stake-reel-engine/internal/reel"
)

// RemainingDuration is base minus the time since roundStart, floored at zero.
// Zero means the caller should snap straight to the terminal offset. A round
// start in the future (clock skew) counts as no time elapsed.
func RemainingDuration(roundStart time.Time, base time.Duration, now time.Time) time.Duration {
	elapsed := now.Sub(roundStart)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := base - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Seconds converts fractional seconds to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Layout describes the reel viewport for center-index tracking.
type Layout struct {
	CellHeight     float64 `json:"cell_height"`
	ViewportHeight float64 `json:"viewport_height"`
	Cells          int     `json:"cells"`
}

// CenterIndex is the cell under the viewport center at offset, clamped to the reel.
func (l Layout) CenterIndex(offset float64) int {
	if l.CellHeight <= 0 {
		return 0
	}
	cells := l.Cells
	if cells <= 0 {
		cells = reel.Length
	}
	idx := int(math.Floor(math.Abs(offset)/l.CellHeight)) + int(math.Floor(l.ViewportHeight/(2*l.CellHeight)))
	if idx < 0 {
		return 0
	}
	if idx > cells-1 {
		return cells - 1
	}
	return idx
}
