package animation

import (
	"sync"
	"time"

	"github.com/MJE43/stake-reel-engine/internal/easing"
)

// FrameFunc receives every visible offset update.
type FrameFunc func(offset float64, centerIndex int)

// Options tune a single drive.
type Options struct {
	// Curve eases the coasting phase. Zero means easing.Reel.
	Curve easing.Curve
	// Jitter is the per-round pixel overshoot corrected by the settle phase.
	Jitter float64
	// Layout enables center-index tracking.
	Layout Layout
	// OnCenterChange fires when the cell under the selector changes.
	OnCenterChange func(index int)
	// OnDone fires once when the animation reaches Done.
	OnDone func()
}

// Driver advances one animation through Coasting, Settling and Done, one
// scheduled frame at a time. Cancel stops scheduling and leaves the offset
// where it was.
type Driver struct {
	id       string
	timeline Timeline
	opts     Options
	onFrame  FrameFunc
	sched    Scheduler
	finish   func(*Driver)

	mu          sync.Mutex
	phase       Phase
	offset      float64
	center      int
	started     bool
	cancelled   bool
	cancelFrame func()
}

// ID returns the animation id.
func (d *Driver) ID() string { return d.id }

// Phase returns the current motion phase.
func (d *Driver) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// Offset returns the last visible offset.
func (d *Driver) Offset() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

// CenterIndex returns the last computed center index.
func (d *Driver) CenterIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.center
}

// Cancelled reports whether Cancel was called.
func (d *Driver) Cancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

// Cancel stops future frames. It is idempotent and does not touch the
// persisted record, so a later Drive of the same id resumes.
func (d *Driver) Cancel() {
	d.mu.Lock()
	if d.cancelled || d.phase == Done {
		d.mu.Unlock()
		return
	}
	d.cancelled = true
	cancelFrame := d.cancelFrame
	d.cancelFrame = nil
	d.mu.Unlock()

	if cancelFrame != nil {
		cancelFrame()
	}
}

// apply publishes an offset. Callbacks run outside the lock so they may
// call Cancel.
func (d *Driver) apply(offset float64, phase Phase) bool {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return false
	}
	center := d.opts.Layout.CenterIndex(offset)
	changed := !d.started || center != d.center
	d.offset = offset
	d.phase = phase
	d.center = center
	d.started = true
	d.mu.Unlock()

	if d.onFrame != nil {
		d.onFrame(offset, center)
	}
	if changed && d.opts.OnCenterChange != nil {
		d.opts.OnCenterChange(center)
	}
	return true
}

func (d *Driver) schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelled || d.phase == Done {
		return
	}
	d.cancelFrame = d.sched.RequestFrame(d.step)
}

// step recomputes the absolute offset from wall-clock time.
func (d *Driver) step(now time.Time) {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return
	}
	d.cancelFrame = nil
	d.mu.Unlock()

	f := d.timeline.At(now)
	if !d.apply(f.Offset, f.Phase) {
		return
	}
	if f.Phase == Done {
		d.complete()
		return
	}
	d.schedule()
}

// snap jumps straight to the terminal offset.
func (d *Driver) snap(target float64) {
	if d.apply(target, Done) {
		d.complete()
	}
}

func (d *Driver) complete() {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return
	}
	d.phase = Done
	d.mu.Unlock()

	if d.finish != nil {
		d.finish(d)
	}
	if d.opts.OnDone != nil {
		d.opts.OnDone()
	}
}
