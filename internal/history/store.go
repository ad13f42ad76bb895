// Package history persists distribution reports to SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/logo"
)

// DefaultLimit caps Recent when the caller passes a non-positive limit.
const DefaultLimit = 20

// Fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists distribution runs and their per-file results.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at the given path.
func NewStore(dbPath string) (*Store, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite supports only one writer at a time.
	db.SetMaxOpenConns(4)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			run_trigger TEXT NOT NULL,
			skipped    TEXT NOT NULL DEFAULT '',
			started    TEXT NOT NULL,
			finished   TEXT NOT NULL DEFAULT '',
			failed     INTEGER NOT NULL DEFAULT 0,
			roles_json TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

		CREATE TABLE IF NOT EXISTS run_files (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id  TEXT NOT NULL,
			role    TEXT NOT NULL,
			path    TEXT NOT NULL,
			outcome TEXT NOT NULL,
			kind    TEXT NOT NULL DEFAULT '',
			error   TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_run_files_run_id ON run_files(run_id);
	`)
	return err
}

// Record stores a finished report and its file results in one transaction.
func (s *Store) Record(ctx context.Context, rep *distribute.Report) error {
	rolesJSON, err := json.Marshal(rep.Roles)
	if err != nil {
		return fmt.Errorf("encoding roles: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, run_trigger, skipped, started, finished, failed, roles_json) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Trigger, rep.Skipped, formatTime(rep.Started), formatTime(rep.Finished), rep.Failed(), string(rolesJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, f := range rep.Files {
		_, err := tx.ExecContext(ctx, `INSERT INTO run_files (run_id, role, path, outcome, kind, error) VALUES (?, ?, ?, ?, ?, ?)`,
			rep.ID, string(f.Role), f.Path, string(f.Outcome), f.Kind, f.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting file result: %w", err)
		}
	}
	return tx.Commit()
}

// Observer adapts Record to a distribute.Options observer. Errors are
// passed to onErr.
func (s *Store) Observer(onErr func(error)) func(*distribute.Report) {
	return func(rep *distribute.Report) {
		if err := s.Record(context.Background(), rep); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Recent returns up to limit runs, most recent first, without file results.
func (s *Store) Recent(ctx context.Context, limit int) ([]*distribute.Report, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_trigger, skipped, started, finished, roles_json FROM runs ORDER BY started DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []*distribute.Report{}
	for rows.Next() {
		rep, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// Get returns one run with its file results.
func (s *Store) Get(ctx context.Context, id string) (*distribute.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, run_trigger, skipped, started, finished, roles_json FROM runs WHERE id=?`, id)
	rep, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &logo.Error{Kind: logo.KindNotFound, Op: "get run", Path: id, Err: err}
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, path, outcome, kind, error FROM run_files WHERE run_id=? ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f distribute.FileResult
		var role, outcome string
		if err := rows.Scan(&role, &f.Path, &outcome, &f.Kind, &f.Error); err != nil {
			return nil, err
		}
		f.Role = logo.Role(role)
		f.Outcome = distribute.Outcome(outcome)
		rep.Files = append(rep.Files, f)
	}
	return rep, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM runs ORDER BY started DESC, rowid DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_files WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*distribute.Report, error) {
	var rep distribute.Report
	var started, finished, rolesJSON string
	if err := row.Scan(&rep.ID, &rep.Trigger, &rep.Skipped, &started, &finished, &rolesJSON); err != nil {
		return nil, err
	}
	rep.Started = parseTime(started)
	rep.Finished = parseTime(finished)
	if err := json.Unmarshal([]byte(rolesJSON), &rep.Roles); err != nil {
		return nil, fmt.Errorf("decoding roles for run %s: %w", rep.ID, err)
	}
	return &rep, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
