package animation

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	return c.t
}

type pendingFrame struct {
	fn        func(time.Time)
	cancelled bool
}

// manualScheduler queues frames until the test flushes them.
type manualScheduler struct {
	mu        sync.Mutex
	pending   []*pendingFrame
	requested int
	onRequest func()
}

func (s *manualScheduler) RequestFrame(fn func(time.Time)) func() {
	s.mu.Lock()
	p := &pendingFrame{fn: fn}
	s.pending = append(s.pending, p)
	s.requested++
	hook := s.onRequest
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return func() {
		s.mu.Lock()
		p.cancelled = true
		s.mu.Unlock()
	}
}

// flush runs every pending frame at now and returns how many ran.
func (s *manualScheduler) flush(now time.Time) int {
	s.mu.Lock()
	frames := s.pending
	s.pending = nil
	s.mu.Unlock()

	ran := 0
	for _, p := range frames {
		s.mu.Lock()
		cancelled := p.cancelled
		s.mu.Unlock()
		if cancelled {
			continue
		}
		p.fn(now)
		ran++
	}
	return ran
}

func (s *manualScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.pending {
		if !p.cancelled {
			n++
		}
	}
	return n
}

// failingStore returns loadErr from Load and counts deletes.
type failingStore struct {
	*MemoryStore
	loadErr error
	saveErr error
	deletes int
}

func (s *failingStore) Load(ctx context.Context, id string) (Record, error) {
	if s.loadErr != nil {
		return Record{}, s.loadErr
	}
	return s.MemoryStore.Load(ctx, id)
}

func (s *failingStore) Save(ctx context.Context, rec Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, rec)
}

func (s *failingStore) Delete(ctx context.Context, id string) error {
	s.deletes++
	return s.MemoryStore.Delete(ctx, id)
}

type frameLog struct {
	mu      sync.Mutex
	offsets []float64
	centers []int
}

func (l *frameLog) record(offset float64, center int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offsets = append(l.offsets, offset)
	l.centers = append(l.centers, center)
}

func (l *frameLog) last() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offsets[len(l.offsets)-1]
}

func (l *frameLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.offsets)
}
