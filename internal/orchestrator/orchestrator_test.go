package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HoyeonS/railtrace/internal/report"
)

const pythonModuleNotFound = `Traceback (most recent call last):
  File "app.py", line 42, in main
    import solana
ModuleNotFoundError: No module named 'solana'`

const goDivideByZero = "panic: runtime error: integer divide by zero\n\ngoroutine 1 [running]:\nmain.main()\n\t/home/u/app/main.go:15 +0x18"

const chainedPython = `Traceback (most recent call last):
  File "db.py", line 10, in connect
    raise ConnectionRefusedError()
ConnectionRefusedError: refused

The above exception was the direct cause of the following exception:

Traceback (most recent call last):
  File "app.py", line 5, in main
    connect()
KeyError: 'missing'
`

func TestDiagnosePatternMatchHigh(t *testing.T) {
	o := New(nil, nil, nil, nil, nil)
	rep, err := o.Diagnose(context.Background(), pythonModuleNotFound, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Tier)
	assert.Equal(t, report.SeverityHigh, rep.Severity)
	assert.Equal(t, "ModuleNotFoundError", rep.ErrorType)
}

func TestDiagnoseGoDivideByZeroCriticalWithLocation(t *testing.T) {
	o := New(nil, nil, nil, nil, nil)
	rep, err := o.Diagnose(context.Background(), goDivideByZero, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Tier)
	assert.Equal(t, report.SeverityCritical, rep.Severity)
	require.True(t, rep.HasLocation)
	assert.Equal(t, 15, rep.Line)
	assert.Contains(t, rep.File, "main.go")
}

func TestDiagnoseNoMatchNoGatewayFallsBackToTierZero(t *testing.T) {
	o := New(nil, nil, nil, nil, nil)
	rep, err := o.Diagnose(context.Background(), "SomethingWeird: nothing recognizable", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Tier)
}

func TestDiagnoseChainOrdersRootAndFinal(t *testing.T) {
	o := New(nil, nil, nil, nil, nil)
	result, err := o.DiagnoseChain(context.Background(), chainedPython, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, result.IsChained)
	assert.Equal(t, 2, result.TotalLinked)
	require.NotNil(t, result.RootCause)
	require.NotNil(t, result.FinalError)
	assert.Equal(t, "ConnectionRefusedError", result.RootCause.ErrorType)
	assert.Equal(t, "KeyError", result.FinalError.ErrorType)
}

func TestDiagnoseBatchAggregatesSeverity(t *testing.T) {
	o := New(nil, nil, nil, nil, nil)
	text := pythonModuleNotFound + "\n\n" + goDivideByZero
	result, err := o.DiagnoseBatch(context.Background(), text, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalErrors)
	assert.True(t, result.HasCritical() || result.SeverityCounts["high"] > 0)
}

func TestCanonicalErrorLinePicksLastForPython(t *testing.T) {
	line := canonicalErrorLine(pythonModuleNotFound, report.Python)
	assert.Equal(t, "ModuleNotFoundError: No module named 'solana'", line)
}

func TestCanonicalErrorLinePicksFirstForGo(t *testing.T) {
	line := canonicalErrorLine(goDivideByZero, report.Go)
	assert.Equal(t, "panic: runtime error: integer divide by zero", line)
}

func TestSplitErrorLine(t *testing.T) {
	errType, msg := splitErrorLine("KeyError: 'missing'")
	assert.Equal(t, "KeyError", errType)
	assert.Equal(t, "'missing'", msg)
}
