// Package animation drives wall-clock anchored reel motion that survives
// reloads. Every frame derives its offset from the persisted start time, so
// dropped or late frames never accumulate drift and independent viewers agree.
package animation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

var (
	ErrRecordNotFound = errors.New("animation record not found")
	ErrCorruptRecord  = errors.New("animation record is corrupt")
)

// KeyPrefix namespaces persisted records so unrelated animations never collide.
const KeyPrefix = "reel-anim:"

// StoreKey is the namespaced persistence key for an animation id.
func StoreKey(id string) string { return KeyPrefix + id }

// Record is the persisted state of one animation. Times are unix milliseconds.
type Record struct {
	ID            string  `json:"id"`
	StartTime     int64   `json:"startTime"`
	TotalDuration int64   `json:"totalDuration"`
	StartY        float64 `json:"startY"`
	TargetY       float64 `json:"targetY"`
}

// NewRecord starts a record at now.
func NewRecord(id string, now time.Time, duration time.Duration, startY, targetY float64) Record {
	return Record{
		ID:            id,
		StartTime:     now.UnixMilli(),
		TotalDuration: duration.Milliseconds(),
		StartY:        startY,
		TargetY:       targetY,
	}
}

// Start returns the wall-clock start.
func (r Record) Start() time.Time { return time.UnixMilli(r.StartTime) }

// Duration returns the main-phase duration.
func (r Record) Duration() time.Duration { return time.Duration(r.TotalDuration) * time.Millisecond }

// Validate rejects records that cannot be resumed.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: empty id", ErrCorruptRecord)
	case r.StartTime <= 0:
		return fmt.Errorf("%w: start time %d", ErrCorruptRecord, r.StartTime)
	case r.TotalDuration <= 0:
		return fmt.Errorf("%w: duration %d", ErrCorruptRecord, r.TotalDuration)
	case !finite(r.StartY) || !finite(r.TargetY):
		return fmt.Errorf("%w: non-finite offsets", ErrCorruptRecord)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Store persists records by id. Writes are last-writer-wins; each id has a
// single owner at a time. Load returns ErrRecordNotFound for unknown ids.
type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps records for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[StoreKey(id)]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[StoreKey(rec.ID)] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, StoreKey(id))
	return nil
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
