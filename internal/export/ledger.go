package export

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrJobNotFound is returned for unknown job IDs.
var ErrJobNotFound = errors.New("export job not found")

const timeLayout = time.RFC3339Nano

// Ledger persists export job records in SQLite.
type Ledger struct {
	DB *sql.DB
}

// OpenLedger opens (or creates) the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	l := &Ledger{DB: db}
	if err := l.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS export_jobs (
            id TEXT PRIMARY KEY,
            format TEXT NOT NULL,
            description TEXT,
            destination_json TEXT,
            state TEXT NOT NULL,
            feature_count INTEGER,
            submitted_at TEXT NOT NULL,
            started_at TEXT,
            completed_at TEXT,
            error_message TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_export_jobs_state ON export_jobs(state);`,
	}
	for _, stmt := range stmts {
		if _, err := l.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (l *Ledger) Close() error {
	if l == nil || l.DB == nil {
		return nil
	}
	return l.DB.Close()
}

// RecordSubmitted inserts a submitted job.
func (l *Ledger) RecordSubmitted(st JobStatus, dest Destination) error {
	if l == nil {
		return nil
	}
	destJSON, _ := json.Marshal(dest)
	_, err := l.DB.Exec(`INSERT OR REPLACE INTO export_jobs (id, format, description, destination_json, state, feature_count, submitted_at) VALUES (?, ?, ?, ?, ?, ?, ?);`,
		st.ID, string(st.Format), st.Description, string(destJSON), string(st.State), st.Features, st.Submitted.UTC().Format(timeLayout))
	return err
}

// RecordStart marks a job as running.
func (l *Ledger) RecordStart(id string, at time.Time) error {
	if l == nil {
		return nil
	}
	_, err := l.DB.Exec(`UPDATE export_jobs SET state=?, started_at=? WHERE id=?;`, string(StateRunning), at.UTC().Format(timeLayout), id)
	return err
}

// RecordResult finalizes a job.
func (l *Ledger) RecordResult(id string, state State, at time.Time, errMsg string) error {
	if l == nil {
		return nil
	}
	_, err := l.DB.Exec(`UPDATE export_jobs SET state=?, completed_at=?, error_message=? WHERE id=?;`, string(state), at.UTC().Format(timeLayout), errMsg, id)
	return err
}

// Job loads one job record.
func (l *Ledger) Job(id string) (JobStatus, error) {
	if l == nil {
		return JobStatus{}, ErrJobNotFound
	}
	var (
		st                  JobStatus
		format, state       string
		description, errMsg sql.NullString
		submitted           string
		started, completed  sql.NullString
	)
	err := l.DB.QueryRow(`SELECT id, format, description, state, feature_count, submitted_at, started_at, completed_at, error_message FROM export_jobs WHERE id=?;`, id).
		Scan(&st.ID, &format, &description, &state, &st.Features, &submitted, &started, &completed, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return JobStatus{}, err
	}
	st.Format = Format(format)
	st.State = State(state)
	st.Description = description.String
	st.Error = errMsg.String
	if st.Submitted, err = time.Parse(timeLayout, submitted); err != nil {
		return JobStatus{}, fmt.Errorf("bad submitted_at for %s: %w", id, err)
	}
	st.Started = parseNullTime(started)
	st.Completed = parseNullTime(completed)
	return st, nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}
