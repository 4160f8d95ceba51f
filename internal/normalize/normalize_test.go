package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonTrace = `Traceback (most recent call last):
  File "app.py", line 42, in main
    import solana
ModuleNotFoundError: No module named 'solana'`

func TestNormalizeIsDeterministic(t *testing.T) {
	a, err := Normalize(pythonTrace)
	require.NoError(t, err)
	b, err := Normalize(pythonTrace)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestNormalizeEmptyTrace(t *testing.T) {
	_, err := Normalize("   \n\t")
	assert.ErrorIs(t, err, ErrEmptyTrace)
}

func TestNormalizeDedupsPreservingOrder(t *testing.T) {
	trace := `File "app.py", line 1, in a
File "app.py", line 1, in a
File "lib.py", line 2, in b`
	r, err := Normalize(trace)
	require.NoError(t, err)
	assert.Equal(t, "app.py:1\nlib.py:2", r.Canonical)
}

func TestNormalizeIdempotentOnCanonicalForm(t *testing.T) {
	first, err := Normalize(pythonTrace)
	require.NoError(t, err)

	second, err := Normalize(first.Canonical)
	require.NoError(t, err)

	assert.Equal(t, first.Canonical, second.Canonical)
}

func TestNormalizeSnippetCapAt500Bytes(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString(`File "f.py", line `)
		sb.WriteString(strings.Repeat("9", i+1))
		sb.WriteString(", in x\n")
	}
	r, err := Normalize(sb.String())
	require.NoError(t, err)
	if len(r.Canonical) > 500 {
		assert.Len(t, r.Snippet, 500)
	}
}
