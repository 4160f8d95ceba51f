package memory

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoyeonS/railtrace/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "memory.db")
	s, err := Open(context.Background(), BackendSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestRecordThenRecall(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := report.MemoryEntry{
		Language:     report.Python,
		Fingerprint:  "abc123",
		Snippet:      "ZeroDivisionError: division by zero",
		Severity:     report.SeverityMedium,
		Tier:         1,
		RootCause:    "Division by zero",
		SuggestedFix: "Add a guard",
		Confidence:   0.9,
		Success:      true,
	}

	inserted, err := s.Record(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	results, err := s.Recall(ctx, "ZeroDivisionError: division by zero", "", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "abc123", results[0].Fingerprint)
	assert.Equal(t, report.SeverityMedium, results[0].Severity)
}

func TestRecordDuplicateFingerprintSkipped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entry := report.MemoryEntry{Language: report.Go, Fingerprint: "dup", Snippet: "panic: nil", Tier: 1}

	first, err := s.Record(ctx, entry)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.Record(ctx, entry)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestRepoStatsAggregates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, report.MemoryEntry{
		Fingerprint: "r1", Severity: report.SeverityHigh, Confidence: 1.0, Success: true,
		RepoID: "repo-a", HasRepoID: true,
	})
	require.NoError(t, err)
	_, err = s.Record(ctx, report.MemoryEntry{
		Fingerprint: "r2", Severity: report.SeverityLow, Confidence: 0.5, Success: false,
		RepoID: "repo-a", HasRepoID: true,
	})
	require.NoError(t, err)

	stats, err := s.RepoStats(ctx, "repo-a")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAnalyses)
	assert.Equal(t, 1, stats.SuccessfulFixes)
	assert.Equal(t, 0.5, stats.SuccessRate)
}

func TestBootstrapMigratesLegacyTableMissingRepoID(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
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
		success BOOLEAN
	)`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(context.Background(), BackendSQLite, dsn)
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.db.Query("PRAGMA table_info(analyses)")
	require.NoError(t, err)
	defer rows.Close()

	hasRepoID := false
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString
		require.NoError(t, rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk))
		if name == "repo_id" {
			hasRepoID = true
		}
	}
	require.True(t, hasRepoID, "repo_id column should be added by migration")

	inserted, err := s.Record(context.Background(), report.MemoryEntry{
		Fingerprint: "legacy-fp", Snippet: "KeyError: 'y'", RepoID: "repo-z", HasRepoID: true,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	results, err := s.Recall(context.Background(), "KeyError: 'y'", "repo-z", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "repo-z", results[0].RepoID)
}

func TestRecallScopesToRepoWithUnscopedFallback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Record(ctx, report.MemoryEntry{Fingerprint: "global", Snippet: "KeyError: 'x'"})
	require.NoError(t, err)
	_, err = s.Record(ctx, report.MemoryEntry{
		Fingerprint: "scoped", Snippet: "KeyError: 'x'", RepoID: "repo-b", HasRepoID: true,
	})
	require.NoError(t, err)

	results, err := s.Recall(ctx, "KeyError: 'x'", "repo-b", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
