package animation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MJE43/stake-reel-engine/internal/easing"
	"github.com/MJE43/stake-reel-engine/internal/monitoring"
)

// Registry owns the in-flight drivers of one view, keyed by animation id.
// It never returns errors: unreadable state degrades to a fresh start or a
// snap to the terminal offset.
type Registry struct {
	store   Store
	sched   Scheduler
	now     func() time.Time
	log     *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	drivers map[string]*Driver
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// WithMetrics records lifecycle events.
func WithMetrics(m *monitoring.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates a registry over a record store and frame scheduler.
func NewRegistry(store Store, sched Scheduler, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:   store,
		sched:   sched,
		now:     time.Now,
		log:     zap.NewNop(),
		drivers: make(map[string]*Driver),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RemainingDuration uses the registry clock.
func (r *Registry) RemainingDuration(roundStart time.Time, base time.Duration) time.Duration {
	return RemainingDuration(roundStart, base, r.now())
}

// Drive starts or resumes animation id toward target over duration.
//
// First drive of an id persists a fresh record before the first frame is
// requested and eases from offset 0. If a record already exists it wins over
// the arguments: the offset at the elapsed time is shown immediately and only
// the remaining time is animated, or, when the record has run out, the target
// is shown and the record is removed. An empty id gets a random one.
func (r *Registry) Drive(ctx context.Context, id string, target float64, duration time.Duration, onFrame FrameFunc, opts Options) *Driver {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	r.Cancel(id)

	d := &Driver{
		id:      id,
		opts:    opts,
		onFrame: onFrame,
		sched:   r.sched,
		finish:  r.finish,
	}
	now := r.now()

	rec, resumed := r.load(ctx, id)
	if resumed {
		d.timeline = TimelineFor(rec, opts.Curve, opts.Jitter)
		elapsed := now.Sub(rec.Start())
		if elapsed >= rec.Duration() {
			r.log.Debug("animation already finished, snapping", zap.String("id", id), zap.Duration("elapsed", elapsed))
			r.metrics.AnimationEvent(monitoring.EventSnapped)
			r.register(d)
			d.snap(rec.TargetY)
			return d
		}
		r.log.Debug("resuming animation", zap.String("id", id), zap.Duration("elapsed", elapsed))
		r.metrics.AnimationEvent(monitoring.EventResumed)
		r.register(d)
		d.apply(d.timeline.Coast(elapsed), Coasting)
		d.schedule()
		return d
	}

	if duration <= 0 {
		d.timeline = Timeline{To: target, Curve: easing.Reel}
		r.metrics.AnimationEvent(monitoring.EventSnapped)
		d.snap(target)
		return d
	}

	rec = NewRecord(id, now, duration, 0, target)
	if err := r.store.Save(ctx, rec); err != nil {
		r.log.Warn("persist animation record failed", zap.String("id", id), zap.Error(err))
	}
	d.timeline = TimelineFor(rec, opts.Curve, opts.Jitter)
	r.metrics.AnimationEvent(monitoring.EventStarted)
	r.register(d)
	d.apply(rec.StartY, Coasting)
	d.schedule()
	return d
}

// Begin persists a fresh record without driving frames, replacing any
// existing one. An empty id gets a random one.
func (r *Registry) Begin(ctx context.Context, id string, target float64, duration time.Duration) Record {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	rec := NewRecord(id, r.now(), duration, 0, target)
	if err := r.store.Save(ctx, rec); err != nil {
		r.log.Warn("persist animation record failed", zap.String("id", id), zap.Error(err))
	}
	r.metrics.AnimationEvent(monitoring.EventStarted)
	return rec
}

// Snapshot reports what a viewer resuming id would show now. A finished
// record reports its target and is removed. ok is false when no usable
// record exists.
func (r *Registry) Snapshot(ctx context.Context, id string, opts Options) (frame Frame, rec Record, ok bool) {
	rec, ok = r.load(ctx, id)
	if !ok {
		return Frame{}, Record{}, false
	}
	now := r.now()
	elapsed := now.Sub(rec.Start())
	if elapsed >= rec.Duration() {
		r.deleteRecord(ctx, id)
		r.metrics.AnimationEvent(monitoring.EventSnapped)
		return Frame{Offset: rec.TargetY, Phase: Done, Elapsed: elapsed}, rec, true
	}
	tl := TimelineFor(rec, opts.Curve, opts.Jitter)
	return Frame{Offset: tl.Coast(elapsed), Phase: Coasting, Elapsed: elapsed}, rec, true
}

// Forget removes the persisted record of id and cancels its driver.
func (r *Registry) Forget(ctx context.Context, id string) {
	r.Cancel(id)
	r.deleteRecord(ctx, id)
}

// Cancel stops the in-flight driver of id, if any.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	d := r.drivers[id]
	delete(r.drivers, id)
	r.mu.Unlock()
	if d != nil {
		d.Cancel()
	}
}

// CancelAll stops every in-flight driver, e.g. when the owning view unmounts.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	drivers := r.drivers
	r.drivers = make(map[string]*Driver)
	r.mu.Unlock()
	for _, d := range drivers {
		d.Cancel()
	}
}

// Active returns the number of in-flight drivers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drivers)
}

func (r *Registry) register(d *Driver) {
	r.mu.Lock()
	r.drivers[d.id] = d
	r.mu.Unlock()
}

func (r *Registry) finish(d *Driver) {
	r.mu.Lock()
	if r.drivers[d.id] == d {
		delete(r.drivers, d.id)
	}
	r.mu.Unlock()

	r.deleteRecord(context.Background(), d.id)
	r.metrics.AnimationEvent(monitoring.EventCompleted)
}

// load treats a missing, unreadable or invalid record as absent.
func (r *Registry) load(ctx context.Context, id string) (Record, bool) {
	rec, err := r.store.Load(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return Record{}, false
	}
	if err == nil {
		err = rec.Validate()
		if err == nil && rec.ID != id {
			err = ErrCorruptRecord
		}
	}
	if err != nil {
		r.log.Warn("discarding unreadable animation record", zap.String("id", id), zap.Error(err))
		r.metrics.AnimationEvent(monitoring.EventCorrupt)
		r.deleteRecord(ctx, id)
		return Record{}, false
	}
	return rec, true
}

func (r *Registry) deleteRecord(ctx context.Context, id string) {
	if err := r.store.Delete(ctx, id); err != nil {
		r.log.Warn("delete animation record failed", zap.String("id", id), zap.Error(err))
	}
}
