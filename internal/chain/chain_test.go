package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoyeonS/railtrace/internal/report"
)

const pythonChained = `Traceback (most recent call last):
  File "db.py", line 10, in connect
    raise ConnectionError("refused")
ConnectionError: refused

The above exception was the direct cause of the following exception:

Traceback (most recent call last):
  File "app.py", line 5, in main
    connect()
RuntimeError: failed to start
`

const pythonSingle = `Traceback (most recent call last):
  File "app.py", line 5, in main
    1 / 0
ZeroDivisionError: division by zero
`

const nodeChained = `TypeError: failed
    at run (/app/index.js:1:1)
Caused by: ReferenceError: x is not defined
    at load (/app/lib.js:2:1)
`

func TestSplitPythonDirectCause(t *testing.T) {
	links := Split(pythonChained)
	require.Len(t, links, 2)
	assert.Equal(t, report.RelationshipRoot, links[0].Relationship)
	assert.Equal(t, report.RelationshipDirectCause, links[1].Relationship)
	assert.Contains(t, links[0].TraceText, "ConnectionError")
	assert.Contains(t, links[1].TraceText, "RuntimeError")
}

func TestSplitSingleBlockIsRootOnly(t *testing.T) {
	links := Split(pythonSingle)
	require.Len(t, links, 1)
	assert.Equal(t, report.RelationshipRoot, links[0].Relationship)
}

func TestSplitNodeCausedBy(t *testing.T) {
	links := Split(nodeChained)
	require.Len(t, links, 2)
	assert.Equal(t, report.RelationshipCausedBy, links[1].Relationship)
	assert.Contains(t, links[1].TraceText, "ReferenceError")
}

func TestIsChainedDetectsBoundary(t *testing.T) {
	assert.True(t, IsChained(pythonChained))
	assert.False(t, IsChained(pythonSingle))
}

func TestSummaryEmptyWhenNotChained(t *testing.T) {
	assert.Equal(t, "", Summary(Split(pythonSingle)))
}

func TestSummaryListsEachLink(t *testing.T) {
	s := Summary(Split(pythonChained))
	assert.Contains(t, s, "2 linked errors")
	assert.Contains(t, s, "ROOT CAUSE")
	assert.Contains(t, s, "caused →")
}
