package sourcewindow

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNumberedFile(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		sb.WriteString("line" + strconv.Itoa(i) + "\n")
	}
	path := filepath.Join(t.TempDir(), "source.py")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestWindowBoundedByRadius(t *testing.T) {
	path := writeNumberedFile(t, 100)
	r := New()

	w := r.Window(path, 50, 5)
	assert.True(t, w.Exists)
	assert.Equal(t, 45, w.StartLine)
	assert.Equal(t, 55, w.EndLine)
	assert.Len(t, w.Lines, 11)
	assert.LessOrEqual(t, len(w.Lines), 2*5+1)
}

func TestWindowRadiusZero(t *testing.T) {
	path := writeNumberedFile(t, 10)
	r := New()

	w := r.Window(path, 5, 0)
	assert.True(t, w.Exists)
	assert.Len(t, w.Lines, 1)
	assert.Equal(t, "line5", w.Lines[0])
}

func TestWindowClampsStartAtLine1(t *testing.T) {
	path := writeNumberedFile(t, 10)
	r := New()

	w := r.Window(path, 1, 5)
	assert.Equal(t, 1, w.StartLine)
}

func TestWindowMissingFile(t *testing.T) {
	r := New()
	w := r.Window("/nonexistent/path.py", 10, 5)
	assert.False(t, w.Exists)
	assert.Empty(t, w.Lines)
}

func TestClearForcesFreshRead(t *testing.T) {
	path := writeNumberedFile(t, 5)
	r := New()

	first := r.Window(path, 1, 0)
	require.True(t, first.Exists)

	require.NoError(t, os.WriteFile(path, []byte("changed\n"), 0o644))
	r.Clear()

	second := r.Window(path, 1, 0)
	require.True(t, second.Exists)
	assert.Equal(t, "changed", second.Lines[0])
}
