// Package animstore provides durable animation.Store backends.
package animstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/MJE43/stake-reel-engine/internal/animation"
)

// SQLite persists animation records in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ animation.Store = (*SQLite)(nil)

// OpenSQLite opens/creates a SQLite database at dbPath and runs migrations.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("animstore: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &SQLite{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS animation_records (
			key TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			total_duration INTEGER NOT NULL,
			start_y REAL NOT NULL,
			target_y REAL NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_animation_records_start ON animation_records(start_time);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("animstore: begin migration: %w", err)
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return fmt.Errorf("animstore: migrate: %w", err)
		}
	}
	return tx.Commit()
}

// Load returns animation.ErrRecordNotFound for unknown ids.
func (s *SQLite) Load(ctx context.Context, id string) (animation.Record, error) {
	var rec animation.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_time, total_duration, start_y, target_y
		FROM animation_records WHERE key=?`, animation.StoreKey(id),
	).Scan(&rec.ID, &rec.StartTime, &rec.TotalDuration, &rec.StartY, &rec.TargetY)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return animation.Record{}, animation.ErrRecordNotFound
	case err != nil:
		return animation.Record{}, fmt.Errorf("%w: %v", animation.ErrCorruptRecord, err)
	}
	return rec, nil
}

// Save upserts the record; last writer wins.
func (s *SQLite) Save(ctx context.Context, rec animation.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO animation_records(key, id, start_time, total_duration, start_y, target_y, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			id=excluded.id,
			start_time=excluded.start_time,
			total_duration=excluded.total_duration,
			start_y=excluded.start_y,
			target_y=excluded.target_y,
			updated_at=excluded.updated_at`,
		animation.StoreKey(rec.ID), rec.ID, rec.StartTime, rec.TotalDuration, rec.StartY, rec.TargetY, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("animstore: save %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM animation_records WHERE key=?`, animation.StoreKey(id)); err != nil {
		return fmt.Errorf("animstore: delete %s: %w", id, err)
	}
	return nil
}

// PurgeBefore drops records that started before cutoff, e.g. abandoned rounds.
func (s *SQLite) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM animation_records WHERE start_time < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("animstore: purge: %w", err)
	}
	return res.RowsAffected()
}
