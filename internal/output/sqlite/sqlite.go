// Package sqlite persists reports to a SQLite database: one row per run in
// runs and the annotated records of that run in records.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/clientpulse/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL,
	source TEXT NOT NULL,
	generated_at DATETIME NOT NULL,
	filter TEXT NOT NULL,
	metrics_json TEXT NOT NULL,
	fallbacks_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_generated ON runs(generated_at);

CREATE TABLE IF NOT EXISTS records (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	position INTEGER NOT NULL,
	client_id TEXT NOT NULL,
	value REAL,
	signed_at TEXT,
	status TEXT,
	score INTEGER,
	categoria_nps TEXT,
	tenure_days INTEGER,
	month_signed TEXT,
	cluster TEXT NOT NULL,
	attributes_json TEXT,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_records_cluster ON records(run_id, cluster);
`

// Output writes reports to SQLite. Safe for concurrent use.
type Output struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// New opens (creating if needed) the database at path and ensures the schema.
func New(path string) (*Output, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite output: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite output: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite output: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite output: init schema: %w", err)
	}
	return &Output{db: db, dbPath: path}, nil
}

// Path returns the database file path.
func (o *Output) Path() string {
	return o.dbPath
}

// Write stores the report and its records in one transaction.
// Writing the same run ID twice replaces the earlier copy.
func (o *Output) Write(ctx context.Context, report model.Report) error {
	metrics, err := json.Marshal(report.Metrics)
	if err != nil {
		return fmt.Errorf("sqlite output: marshal metrics: %w", err)
	}
	var fallbacks any
	if len(report.Fallbacks) > 0 {
		b, err := json.Marshal(report.Fallbacks)
		if err != nil {
			return fmt.Errorf("sqlite output: marshal fallbacks: %w", err)
		}
		fallbacks = string(b)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite output: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE run_id = ?`, report.RunID); err != nil {
		return fmt.Errorf("sqlite output: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, dataset_id, source, generated_at, filter, metrics_json, fallbacks_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.DatasetID, report.Source, report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(report.Filter), string(metrics), fallbacks)
	if err != nil {
		return fmt.Errorf("sqlite output: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (run_id, position, client_id, value, signed_at, status, score,
			categoria_nps, tenure_days, month_signed, cluster, attributes_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite output: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Records {
		attrs, err := attributesJSON(r.Attributes)
		if err != nil {
			return fmt.Errorf("sqlite output: record %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx,
			report.RunID, i, r.ClientID, nullFloat(r.Value), nullString(model.FormatDate(r.SignedAt)),
			r.Status, nullInt(r.Score), nullString(string(r.Category)), nullInt(r.TenureDays),
			nullString(r.MonthSigned), string(r.Cluster), attrs)
		if err != nil {
			return fmt.Errorf("sqlite output: insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite output: commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (o *Output) Close() error {
	return o.db.Close()
}

func attributesJSON(attrs map[string]string) (any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
