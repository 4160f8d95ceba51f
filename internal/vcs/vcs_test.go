package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoyeonS/railtrace/internal/report"
)

func initRepo(t *testing.T) (dir, file string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir = t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		require.NoError(t, cmd.Run())
	}

	run("init", "-q")
	file = filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(file, []byte("print('a')\nprint('b')\nprint('c')\n"), 0o644))
	run("add", "main.py")
	run("commit", "-q", "-m", "initial")

	return dir, file
}

func TestCollectReturnsBlameForTrackedFile(t *testing.T) {
	_, file := initRepo(t)
	c := New(5*time.Second, 10*time.Second)

	vc := c.Collect(context.Background(), report.Frame{FilePath: file, LineNumber: 2}, false)

	assert.Empty(t, vc.Error)
	require.NotNil(t, vc.Blame)
	assert.Equal(t, "Test", vc.Blame.Author)
}

func TestCollectSkipReturnsError(t *testing.T) {
	c := New(5*time.Second, 10*time.Second)
	vc := c.Collect(context.Background(), report.Frame{FilePath: "/tmp/x.py", LineNumber: 1}, true)
	assert.NotEmpty(t, vc.Error)
}

func TestCollectIncludesHunkTextFromRecentCommit(t *testing.T) {
	dir, file := initRepo(t)

	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		require.NoError(t, cmd.Run())
	}
	require.NoError(t, os.WriteFile(file, []byte("print('a')\nprint('B')\nprint('c')\n"), 0o644))
	run("commit", "-q", "-am", "edit line 2")

	c := New(5*time.Second, 10*time.Second)
	vc := c.Collect(context.Background(), report.Frame{FilePath: file, LineNumber: 2}, false)

	require.Empty(t, vc.Error)
	require.NotEmpty(t, vc.Diffs)
	assert.Contains(t, vc.Diffs[0].HunkText, "@@")
	assert.Contains(t, vc.Diffs[0].HunkText, "+print('B')")
	assert.LessOrEqual(t, len(strings.Split(vc.Diffs[0].HunkText, "\n")), 20)
}

func TestExtractRelevantHunkCapsAtTwentyLines(t *testing.T) {
	var b strings.Builder
	b.WriteString("@@ -1,30 +1,30 @@\n")
	for i := 0; i < 30; i++ {
		b.WriteString(" line\n")
	}
	got := extractRelevantHunk(b.String(), 1, 5)
	lines := strings.Split(got, "\n")
	assert.LessOrEqual(t, len(lines), 20)
	assert.Equal(t, "@@ -1,30 +1,30 @@", lines[0])
}

func TestExtractRelevantHunkEmptyDiffReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", extractRelevantHunk("", 10, 5))
}

func TestCollectOutsideRepoReturnsError(t *testing.T) {
	c := New(1*time.Second, 1*time.Second)
	dir := t.TempDir()
	file := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(file, []byte("x\n"), 0o644))

	vc := c.Collect(context.Background(), report.Frame{FilePath: file, LineNumber: 1}, false)
	assert.Equal(t, "Not in a git repository", vc.Error)
}
