package language

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HoyeonS/railtrace/internal/report"
)

func TestDetectPython(t *testing.T) {
	trace := "Traceback (most recent call last):\n  File \"app.py\", line 42, in main\nModuleNotFoundError: x"
	assert.Equal(t, report.Python, Detect(trace))
}

func TestDetectGoPanic(t *testing.T) {
	trace := "panic: runtime error: integer divide by zero\n\ngoroutine 1 [running]:\nmain.main()\n\t/home/u/app/main.go:15 +0x18"
	assert.Equal(t, report.Go, Detect(trace))
}

func TestDetectRustPanic(t *testing.T) {
	trace := "thread 'main' panicked at 'index out of bounds', src/main.rs:10:5"
	assert.Equal(t, report.Rust, Detect(trace))
}

func TestDetectUnknownOnZeroMatches(t *testing.T) {
	assert.Equal(t, report.Unknown, Detect("nothing recognizable here"))
}

func TestDetectIsIdempotent(t *testing.T) {
	trace := "panic: oh no\ngoroutine 1 [running]:\n\t/a/b.go:1 +0x1"
	assert.Equal(t, Detect(trace), Detect(trace))
}
