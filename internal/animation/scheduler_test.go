package animation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerFires(t *testing.T) {
	s := NewIntervalScheduler(240)
	fired := make(chan time.Time, 1)
	s.RequestFrame(func(now time.Time) { fired <- now })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("frame never fired")
	}
}

func TestIntervalSchedulerCancel(t *testing.T) {
	s := &IntervalScheduler{Interval: 50 * time.Millisecond}
	fired := make(chan struct{}, 1)
	cancel := s.RequestFrame(func(time.Time) { fired <- struct{}{} })
	cancel()
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled frame fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestRegistryWithIntervalScheduler(t *testing.T) {
	reg := NewRegistry(NewMemoryStore(), NewIntervalScheduler(120))
	done := make(chan struct{})
	d := reg.Drive(context.Background(), "live", -500, 100*time.Millisecond, nil, Options{
		OnDone: func() { close(done) },
	})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("animation never finished")
	}
	require.Equal(t, Done, d.Phase())
	assert.Equal(t, -500.0, d.Offset())
}

func TestDefaultFrameRate(t *testing.T) {
	s := NewIntervalScheduler(0)
	assert.Equal(t, time.Second/DefaultFrameRate, s.Interval)
}
