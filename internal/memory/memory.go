// Package memory persists past diagnoses so future ones on the same
// or similar traces can recall precedent instead of re-invoking a
// model (component J). Backed by sqlite or postgres, selected by
// configuration.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/HoyeonS/railtrace/internal/report"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// ErrUnknownBackend is returned by Open for an unrecognized backend name.
var ErrUnknownBackend = errors.New("memory: unknown backend")

// Stats summarizes recorded analyses, optionally scoped to one repo.
type Stats struct {
	TotalAnalyses   int
	AvgConfidence   float64
	SuccessfulFixes int
	Severities      []string
	SuccessRate     float64
}

// Store records and recalls diagnosis outcomes.
type Store struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	name            string
	placeholder     func(n int) string
	autoincrementPK string
	groupConcat     string
}

var dialects = map[string]dialect{
	BackendSQLite: {
		name:            BackendSQLite,
		placeholder:     func(n int) string { return "?" },
		autoincrementPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
		groupConcat:     "GROUP_CONCAT(DISTINCT severity)",
	},
	BackendPostgres: {
		name:            BackendPostgres,
		placeholder:     func(n int) string { return fmt.Sprintf("$%d", n) },
		autoincrementPK: "SERIAL PRIMARY KEY",
		groupConcat:     "STRING_AGG(DISTINCT severity, ',')",
	},
}

// Open connects to the backend named by backend ("sqlite" or "postgres")
// and ensures the schema exists.
func Open(ctx context.Context, backend, dsn string) (*Store, error) {
	d, ok := dialects[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	driver := "sqlite3"
	if backend == BackendPostgres {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, dialect: d}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bootstrap(ctx context.Context) error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS analyses (
		id %s,
		entry_id TEXT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		language TEXT,
		tb_hash TEXT UNIQUE,
		tb_snippet TEXT,
		severity TEXT,
		tier_used INTEGER,
		root_cause TEXT,
		suggested_fix TEXT,
		confidence REAL,
		success BOOLEAN,
		repo_id TEXT
	)`, s.dialect.autoincrementPK)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("memory: create table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_hash ON analyses(tb_hash)",
		"CREATE INDEX IF NOT EXISTS idx_snippet ON analyses(tb_snippet)",
		"CREATE INDEX IF NOT EXISTS idx_time ON analyses(timestamp)",
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("memory: create index: %w", err)
		}
	}

	return s.migrateRepoID(ctx)
}

// migrateRepoID adds the repo_id column to a pre-existing analyses
// table that predates it. CREATE TABLE IF NOT EXISTS is a no-op
// against such a table, so repo_id would otherwise never appear.
func (s *Store) migrateRepoID(ctx context.Context) error {
	if s.dialect.name == BackendPostgres {
		if _, err := s.db.ExecContext(ctx, "ALTER TABLE analyses ADD COLUMN IF NOT EXISTS repo_id TEXT"); err != nil {
			return fmt.Errorf("memory: migrate repo_id column: %w", err)
		}
		return nil
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(analyses)")
	if err != nil {
		return fmt.Errorf("memory: inspect schema: %w", err)
	}
	defer rows.Close()

	hasRepoID := false
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("memory: inspect schema: %w", err)
		}
		if name == "repo_id" {
			hasRepoID = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("memory: inspect schema: %w", err)
	}
	if hasRepoID {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "ALTER TABLE analyses ADD COLUMN repo_id TEXT"); err != nil {
		return fmt.Errorf("memory: migrate repo_id column: %w", err)
	}
	return nil
}

const recallSnippetPrefix = 100

// Recall returns up to limit past entries whose snippet resembles
// snippet, preferring entries scoped to repoID (or unscoped entries)
// over entries from other repos, newest first.
func (s *Store) Recall(ctx context.Context, snippet, repoID string, limit int) ([]report.MemoryEntry, error) {
	prefix := snippet
	if len(prefix) > recallSnippetPrefix {
		prefix = prefix[:recallSnippetPrefix]
	}
	term := "%" + prefix + "%"

	var rows *sql.Rows
	var err error

	cols := `entry_id, timestamp, language, tb_hash, tb_snippet, severity, tier_used,
			root_cause, suggested_fix, confidence, success, repo_id`

	if repoID != "" {
		query := fmt.Sprintf(`SELECT %s
			FROM analyses
			WHERE tb_snippet LIKE %s
			ORDER BY CASE WHEN (repo_id = %s OR repo_id IS NULL OR repo_id = '') THEN 0 ELSE 1 END, timestamp DESC
			LIMIT %s`,
			cols, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))
		rows, err = s.db.QueryContext(ctx, query, term, repoID, limit)
	} else {
		query := fmt.Sprintf(`SELECT %s
			FROM analyses WHERE tb_snippet LIKE %s ORDER BY timestamp DESC LIMIT %s`,
			cols, s.dialect.placeholder(1), s.dialect.placeholder(2))
		rows, err = s.db.QueryContext(ctx, query, term, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("memory: recall: %w", err)
	}
	defer rows.Close()

	var entries []report.MemoryEntry
	for rows.Next() {
		var e report.MemoryEntry
		var ts time.Time
		var repo sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.Language, &e.Fingerprint, &e.Snippet, &e.Severity,
			&e.Tier, &e.RootCause, &e.SuggestedFix, &e.Confidence, &e.Success, &repo); err != nil {
			return nil, fmt.Errorf("memory: scan: %w", err)
		}
		e.Timestamp = ts
		if repo.Valid && repo.String != "" {
			e.RepoID = repo.String
			e.HasRepoID = true
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Record stores one analysis outcome keyed by its fingerprint. A
// duplicate fingerprint is silently ignored (reports true only on
// first insert, mirroring the unique-constraint skip behavior).
func (s *Store) Record(ctx context.Context, e report.MemoryEntry) (bool, error) {
	var repoID any
	if e.HasRepoID {
		repoID = e.RepoID
	}

	cols := []string{"entry_id", "language", "tb_hash", "tb_snippet", "severity", "tier_used",
		"root_cause", "suggested_fix", "confidence", "success", "repo_id"}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = s.dialect.placeholder(i + 1)
	}

	query := fmt.Sprintf("INSERT INTO analyses (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), e.Language, e.Fingerprint, e.Snippet, e.Severity, e.Tier,
		e.RootCause, e.SuggestedFix, e.Confidence, e.Success, repoID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("memory: record: %w", err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// RepoStats aggregates outcomes, optionally scoped to one repo.
func (s *Store) RepoStats(ctx context.Context, repoID string) (Stats, error) {
	where := ""
	var args []any
	if repoID != "" {
		where = fmt.Sprintf("WHERE repo_id = %s OR repo_id IS NULL OR repo_id = ''", s.dialect.placeholder(1))
		args = append(args, repoID)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*),
		AVG(confidence),
		SUM(CASE WHEN success THEN 1 ELSE 0 END),
		%s
		FROM analyses %s`, s.dialect.groupConcat, where)

	var total int
	var avgConf sql.NullFloat64
	var successes sql.NullInt64
	var severities sql.NullString

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &avgConf, &successes, &severities); err != nil {
		return Stats{}, fmt.Errorf("memory: stats: %w", err)
	}

	stats := Stats{TotalAnalyses: total}
	if avgConf.Valid {
		stats.AvgConfidence = roundTo2(avgConf.Float64)
	}
	if successes.Valid {
		stats.SuccessfulFixes = int(successes.Int64)
	}
	if severities.Valid && severities.String != "" {
		stats.Severities = strings.Split(severities.String, ",")
	}
	if total > 0 {
		stats.SuccessRate = roundTo2(float64(stats.SuccessfulFixes) / float64(total))
	}
	return stats, nil
}

func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
