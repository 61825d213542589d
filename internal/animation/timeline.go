package animation

import (
	"time"

	"github.com/MJE43/stake-reel-engine/internal/easing"
)

// SettleDuration is the linear correction from the jittered stop to the
// cell-aligned rest offset.
const SettleDuration = 250 * time.Millisecond

// Phase is the motion state of a driven animation.
type Phase int

const (
	Coasting Phase = iota
	Settling
	Done
)

func (p Phase) String() string {
	switch p {
	case Coasting:
		return "coasting"
	case Settling:
		return "settling"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Frame is the visual state at one instant.
type Frame struct {
	Offset  float64       `json:"offset"`
	Phase   Phase         `json:"phase"`
	Elapsed time.Duration `json:"elapsed"`
}

// Timeline maps wall-clock time to offset for one record. It is pure: the
// same record and instant always give the same frame.
type Timeline struct {
	Start    time.Time
	Duration time.Duration
	From     float64
	To       float64
	Jitter   float64
	Curve    easing.Curve
	Settle   time.Duration
}

// TimelineFor builds the timeline of a persisted record. A zero curve
// defaults to easing.Reel.
func TimelineFor(rec Record, curve easing.Curve, jitter float64) Timeline {
	if curve == (easing.Curve{}) {
		curve = easing.Reel
	}
	return Timeline{
		Start:    rec.Start(),
		Duration: rec.Duration(),
		From:     rec.StartY,
		To:       rec.TargetY,
		Jitter:   jitter,
		Curve:    curve,
		Settle:   SettleDuration,
	}
}

// Coast returns the eased coasting offset after elapsed, ignoring settle.
func (tl Timeline) Coast(elapsed time.Duration) float64 {
	if tl.Duration <= 0 {
		return tl.To + tl.Jitter
	}
	progress := float64(elapsed) / float64(tl.Duration)
	return tl.From + (tl.To+tl.Jitter-tl.From)*tl.Curve.Solve(progress)
}

// At returns the frame at now.
func (tl Timeline) At(now time.Time) Frame {
	elapsed := now.Sub(tl.Start)
	if elapsed < 0 {
		elapsed = 0
	}

	if elapsed < tl.Duration {
		return Frame{Offset: tl.Coast(elapsed), Phase: Coasting, Elapsed: elapsed}
	}

	into := elapsed - tl.Duration
	if into < tl.Settle && tl.Settle > 0 {
		t := float64(into) / float64(tl.Settle)
		from := tl.To + tl.Jitter
		return Frame{Offset: from + (tl.To-from)*t, Phase: Settling, Elapsed: elapsed}
	}

	return Frame{Offset: tl.To, Phase: Done, Elapsed: elapsed}
}

// End is the instant the settle phase finishes.
func (tl Timeline) End() time.Time {
	return tl.Start.Add(tl.Duration + tl.Settle)
}
