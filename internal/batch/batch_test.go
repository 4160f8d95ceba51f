package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoIndependentPython = `2024-01-01 log noise before
Traceback (most recent call last):
  File "a.py", line 1, in <module>
    1 / 0
ZeroDivisionError: division by zero
2024-01-01 log noise between
Traceback (most recent call last):
  File "b.py", line 2, in <module>
    raise KeyError("x")
KeyError: 'x'
2024-01-01 trailing noise
`

const chainedPython = `Traceback (most recent call last):
  File "a.py", line 1, in connect
    raise ConnectionError()
ConnectionError: refused

The above exception was the direct cause of the following exception:

Traceback (most recent call last):
  File "b.py", line 2, in main
    connect()
RuntimeError: failed
`

func TestExtractSplitsIndependentTracebacks(t *testing.T) {
	blocks := Extract(twoIndependentPython)
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0], "ZeroDivisionError")
	assert.Contains(t, blocks[1], "KeyError")
	assert.NotContains(t, blocks[1], "trailing noise")
}

func TestExtractKeepsChainedTracebackAsOneBlock(t *testing.T) {
	blocks := Extract(chainedPython)
	require.Len(t, blocks, 1)
	assert.Contains(t, blocks[0], "ConnectionError")
	assert.Contains(t, blocks[0], "RuntimeError")
}

func TestExtractNoTracebackReturnsNil(t *testing.T) {
	assert.Nil(t, Extract("just a plain log line\nwith nothing special\n"))
}

func TestExtractRustPanics(t *testing.T) {
	text := "thread 'main' panicked at 'boom', src/main.rs:10:5\nnote: run with RUST_BACKTRACE=1\n"
	blocks := Extract(text)
	require.Len(t, blocks, 1)
	assert.Contains(t, blocks[0], "panicked at")
}
