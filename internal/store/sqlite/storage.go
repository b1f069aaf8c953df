package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eviefp/hcs/internal/model"
)

const DriverName = "sqlite3"

type Storage struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the database file at path and runs the
// migrations.
func Open(path string) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers on file databases.
	db.SetMaxOpenConns(1)

	s := &Storage{
		db: sqlx.NewDb(db, DriverName),
	}
	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %v", err)
	}
	return s, nil
}

func (s Storage) Close() error {
	return s.db.Close()
}

func (s Storage) EventsBetween(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	var rows []Event

	err := s.db.SelectContext(ctx, &rows, `
		SELECT key, calendar_uid, summary, description, location, organizer,
			status, attach, start_at, end_at, created_at, updated_at
		FROM events
		WHERE start_at >= ? AND start_at < ?
		ORDER BY start_at ASC, id ASC
	`, ceilUnix(start), ceilUnix(end))
	if err != nil {
		return nil, err
	}

	res := make([]model.Event, len(rows))
	for i, r := range rows {
		res[i] = r.Convert()
	}
	return res, nil
}

func (s Storage) ReplaceEvents(ctx context.Context, key string, events []model.Event) (model.ReplaceResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.ReplaceResult{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE key = ?`, key)
	if err != nil {
		return model.ReplaceResult{}, fmt.Errorf("delete events: %v", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return model.ReplaceResult{}, err
	}

	var inserted int64
	for _, e := range events {
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO events (key, calendar_uid, summary, description, location,
				organizer, status, attach, start_at, end_at, created_at, updated_at)
			VALUES (:key, :calendar_uid, :summary, :description, :location,
				:organizer, :status, :attach, :start_at, :end_at, :created_at, :updated_at)
		`, newEvent(e))
		if err != nil {
			return model.ReplaceResult{}, fmt.Errorf("insert event: %v", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return model.ReplaceResult{}, err
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return model.ReplaceResult{}, err
	}
	return model.ReplaceResult{Deleted: int(deleted), Inserted: int(inserted)}, nil
}

// ceilUnix rounds t up to whole seconds, the precision start_at is stored at.
// Both bounds round up so an event stored at 09:00:00 falls outside a window
// opening at 09:00:00.7 and inside one closing there.
func ceilUnix(t time.Time) int64 {
	return t.Add(time.Second - 1).Unix()
}
