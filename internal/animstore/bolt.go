package animstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MJE43/stake-reel-engine/internal/animation"
)

const recordBucket = "animation_records"

// Bolt persists animation records in a BoltDB file, one JSON value per key.
type Bolt struct {
	db *bbolt.DB
}

var _ animation.Store = (*Bolt)(nil)

// OpenBolt opens a BoltDB-backed store at the provided path.
func OpenBolt(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("animstore: bolt path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("animstore: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("animstore: create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Bolt) Load(ctx context.Context, id string) (animation.Record, error) {
	if err := ctx.Err(); err != nil {
		return animation.Record{}, err
	}
	var rec animation.Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(recordBucket)).Get([]byte(animation.StoreKey(id)))
		if payload == nil {
			return animation.ErrRecordNotFound
		}
		if err := json.Unmarshal(payload, &rec); err != nil {
			return fmt.Errorf("%w: %v", animation.ErrCorruptRecord, err)
		}
		return nil
	})
	if err != nil {
		return animation.Record{}, err
	}
	return rec, nil
}

func (b *Bolt) Save(ctx context.Context, rec animation.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("animstore: marshal record: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).Put([]byte(animation.StoreKey(rec.ID)), payload)
	})
}

func (b *Bolt) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).Delete([]byte(animation.StoreKey(id)))
	})
}
