package runlog

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/gwillem/hebidemo/pkg/recorder"
)

// SQLiteStore keeps runs in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ping sqlite")
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveRun stores the run and its valid samples in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}
	v := run.Series.Valid()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, family, names, duration, rate, title, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			family = excluded.family,
			names = excluded.names,
			duration = excluded.duration,
			rate = excluded.rate,
			title = excluded.title,
			samples = excluded.samples
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Family, strings.Join(run.Names, ","),
		run.Duration, run.Rate, run.Title, v.Len())
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ?`, run.ID); err != nil {
		return errors.Wrap(err, "clear samples")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, idx, t, p_act, p_cmd, v_act, v_cmd)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare samples")
	}
	defer stmt.Close()

	for i := 0; i < v.Len(); i++ {
		smp := v.At(i)
		if _, err := stmt.ExecContext(ctx, run.ID, i, smp.Time, smp.PAct, smp.PCmd, smp.VAct, smp.VCmd); err != nil {
			return errors.Wrapf(err, "insert sample %d", i)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

// LoadRun returns the run with id, or false when there is none.
func (s *SQLiteStore) LoadRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		run     Run
		started string
		names   string
		count   int
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, started_at, family, names, duration, rate, title, samples
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &started, &run.Family, &names, &run.Duration, &run.Rate, &run.Title, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, errors.Wrap(err, "query run")
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, false, errors.Wrap(err, "parse started_at")
	}
	run.Names = splitNames(names)

	rows, err := db.QueryContext(ctx, `
		SELECT t, p_act, p_cmd, v_act, v_cmd
		FROM samples WHERE run_id = ? ORDER BY idx
	`, id)
	if err != nil {
		return Run{}, false, errors.Wrap(err, "query samples")
	}
	defer rows.Close()

	series := recorder.New(count)
	for rows.Next() {
		if series.Full() {
			return Run{}, false, errors.Errorf("run %s has more samples than recorded", id)
		}
		var smp recorder.Sample
		if err := rows.Scan(&smp.Time, &smp.PAct, &smp.PCmd, &smp.VAct, &smp.VCmd); err != nil {
			return Run{}, false, errors.Wrap(err, "scan sample")
		}
		series.Record(smp)
	}
	if err := rows.Err(); err != nil {
		return Run{}, false, errors.Wrap(err, "read samples")
	}
	run.Series = series.Valid()
	return run, true, nil
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, started_at, names, samples, title
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			started string
			names   string
		)
		if err := rows.Scan(&info.ID, &started, &names, &info.Samples, &info.Title); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if info.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.Wrap(err, "parse started_at")
		}
		info.Names = splitNames(names)
		out = append(out, info)
	}
	return out, errors.Wrap(rows.Err(), "read runs")
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite store not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			family TEXT NOT NULL,
			names TEXT NOT NULL,
			duration REAL NOT NULL,
			rate REAL NOT NULL,
			title TEXT NOT NULL,
			samples INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			t REAL NOT NULL,
			p_act REAL NOT NULL,
			p_cmd REAL NOT NULL,
			v_act REAL NOT NULL,
			v_cmd REAL NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
	`)
	return errors.Wrap(err, "create tables")
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
