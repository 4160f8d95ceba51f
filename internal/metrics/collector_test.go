package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func TestNewCollectorRegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(families), 1)
}

func TestRecordDiagnosis(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordDiagnosis("python", "high")
	c.RecordDiagnosis("python", "high")

	assert.Equal(t, float64(2), counterValue(t, c.diagnosesTotal, "python", "high"))
}

func TestRecordPatternMatch(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordPatternMatch("python", true)
	c.RecordPatternMatch("python", false)

	assert.Equal(t, float64(1), counterValue(t, c.patternHits, "python", "true"))
	assert.Equal(t, float64(1), counterValue(t, c.patternHits, "python", "false"))
}

func TestRecordModelCall(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordModelCall("tier2", 50*time.Millisecond, nil)
	c.RecordModelCall("tier2", 50*time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(1), counterValue(t, c.modelFailures, "tier2"))
}

func TestRecordMemoryLookup(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordMemoryLookup("sqlite", 5*time.Millisecond, true)

	assert.Equal(t, float64(1), counterValue(t, c.memoryHits, "sqlite", "true"))
}

func TestRecordVcsLookup(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.RecordVcsLookup("blame", 2*time.Millisecond, nil)
	c.RecordVcsLookup("blame", 2*time.Millisecond, errors.New("timeout"))

	assert.Equal(t, float64(1), counterValue(t, c.vcsFailures, "blame"))
}
