package animation

import (
	"sync"
	"time"
)

// DefaultFrameRate matches a typical display refresh.
const DefaultFrameRate = 60

// Scheduler runs fn once on the next rendering frame. The returned func
// cancels the pending frame and is safe to call more than once.
type Scheduler interface {
	RequestFrame(fn func(now time.Time)) (cancel func())
}

// IntervalScheduler emulates a frame loop with a fixed interval timer.
type IntervalScheduler struct {
	Interval time.Duration
	Now      func() time.Time
}

// NewIntervalScheduler ticks at fps frames per second.
func NewIntervalScheduler(fps int) *IntervalScheduler {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &IntervalScheduler{Interval: time.Second / time.Duration(fps), Now: time.Now}
}

func (s *IntervalScheduler) RequestFrame(fn func(now time.Time)) func() {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	t := time.AfterFunc(s.Interval, func() { fn(now()) })
	var once sync.Once
	return func() { once.Do(func() { t.Stop() }) }
}
