package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const defaultListLimit = 20

// Store provides SQLite-based run history storage.
type Store struct {
	db *sql.DB
}

// StoreConfig configures the history store.
type StoreConfig struct {
	// Path is the SQLite database file path
	Path string
}

// NewStore opens or creates a history store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			domain TEXT NOT NULL,
			version TEXT,
			root TEXT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			files INTEGER NOT NULL,
			applicable INTEGER NOT NULL,
			skipped BOOLEAN NOT NULL DEFAULT FALSE,
			pass INTEGER NOT NULL,
			fail INTEGER NOT NULL,
			warn INTEGER NOT NULL,
			read_errors INTEGER NOT NULL DEFAULT 0,
			exit_code INTEGER NOT NULL,
			verdict TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS rule_outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			rule_id TEXT NOT NULL,
			title TEXT NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			findings INTEGER NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,

		// Indexes for common queries
		`CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_rule_outcomes_rule ON rule_outcomes(rule_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Record saves a run and its rule outcomes in one transaction. An empty ID
// is replaced by a new UUID.
func (s *Store) Record(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, domain, version, root, started_at, duration_ms, files, applicable,
		skipped, pass, fail, warn, read_errors, exit_code, verdict
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Domain, rec.Version, rec.Root,
		rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
		rec.Files, rec.Applicable, rec.Skipped, rec.Pass, rec.Fail, rec.Warn,
		rec.ReadErrors, rec.ExitCode, rec.Verdict,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rule_outcomes (
		run_id, position, rule_id, title, severity, status, findings
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range rec.Rules {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, r.RuleID, r.Title, r.Severity, r.Status, r.Findings); err != nil {
			return fmt.Errorf("inserting rule outcome: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, domain, version, root, started_at, duration_ms, files, applicable,
	skipped, pass, fail, warn, read_errors, exit_code, verdict`

// List returns stored runs, newest first, without their rule outcomes.
func (s *Store) List(ctx context.Context, q ListQuery) ([]RunRecord, error) {
	var args []any
	var conditions []string

	if q.Domain != "" {
		conditions = append(conditions, "domain = ?")
		args = append(args, q.Domain)
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, q.Since.UnixMilli())
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, q.Offset)

	//nolint:gosec // Query built with parameterized args, whereClause uses placeholders
	query := `SELECT ` + runColumns + ` FROM runs ` + whereClause + `
		ORDER BY started_at DESC, id LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Get returns one run with its rule outcomes. id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*RunRecord, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		id, stripLikeWildcards(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	var matches []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var rec *RunRecord
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) == 1:
		rec = matches[0]
	case matches[0].ID == id:
		rec = matches[0]
	case matches[1].ID == id:
		rec = matches[1]
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}

	rec.Rules, err = s.rules(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) rules(ctx context.Context, runID string) ([]RuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, title, severity, status, findings
		FROM rule_outcomes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying rule outcomes: %w", err)
	}
	defer rows.Close()

	var out []RuleRecord
	for rows.Next() {
		var r RuleRecord
		if err := rows.Scan(&r.RuleID, &r.Title, &r.Severity, &r.Status, &r.Findings); err != nil {
			return nil, fmt.Errorf("scanning rule outcome: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RuleStats aggregates rule outcomes of a domain over all stored runs,
// most frequently failing first.
func (s *Store) RuleStats(ctx context.Context, domain string) ([]RuleStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.rule_id,
		       COUNT(*),
		       SUM(CASE WHEN o.status = 'fail' THEN 1 ELSE 0 END) AS failures,
		       SUM(CASE WHEN o.status = 'warn' THEN 1 ELSE 0 END),
		       MAX(CASE WHEN o.status = 'fail' THEN r.started_at END)
		FROM rule_outcomes o
		JOIN runs r ON r.id = o.run_id
		WHERE r.domain = ?
		GROUP BY o.rule_id
		ORDER BY failures DESC, o.rule_id`, domain)
	if err != nil {
		return nil, fmt.Errorf("querying rule stats: %w", err)
	}
	defer rows.Close()

	var out []RuleStats
	for rows.Next() {
		var st RuleStats
		var lastFailed sql.NullInt64
		if err := rows.Scan(&st.RuleID, &st.Runs, &st.Failures, &st.Warnings, &lastFailed); err != nil {
			return nil, fmt.Errorf("scanning rule stats: %w", err)
		}
		if lastFailed.Valid {
			st.LastFailed = time.UnixMilli(lastFailed.Int64).UTC()
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `SELECT id FROM runs ORDER BY started_at DESC, id LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM rule_outcomes WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return 0, fmt.Errorf("pruning rule outcomes: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var rec RunRecord
	var version, root sql.NullString
	var startedMs, durationMs int64

	if err := row.Scan(
		&rec.ID, &rec.Domain, &version, &root, &startedMs, &durationMs,
		&rec.Files, &rec.Applicable, &rec.Skipped, &rec.Pass, &rec.Fail, &rec.Warn,
		&rec.ReadErrors, &rec.ExitCode, &rec.Verdict,
	); err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	rec.Version = version.String
	rec.Root = root.String
	rec.StartedAt = time.UnixMilli(startedMs).UTC()
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}

func stripLikeWildcards(s string) string {
	r := strings.NewReplacer("%", "", "_", "")
	return r.Replace(s)
}
