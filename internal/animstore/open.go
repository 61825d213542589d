package animstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MJE43/stake-reel-engine/internal/animation"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
	BoltPath   string
	RedisAddr  string
	RedisTTL   time.Duration
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured store and a closer for its resources.
func Open(ctx context.Context, opts Options) (animation.Store, io.Closer, error) {
	switch opts.Backend {
	case BackendMemory:
		return animation.NewMemoryStore(), nopCloser{}, nil
	case BackendSQLite, "":
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendBolt:
		b, err := OpenBolt(opts.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case BackendRedis:
		r, err := DialRedis(ctx, opts.RedisAddr, opts.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("animstore: unknown backend %q", opts.Backend)
	}
}
