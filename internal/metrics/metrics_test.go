package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_RegistersWithoutPanic(t *testing.T) {
	m := New()
	assert.NotNil(t, m.Handler())
}

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("/projects", "201")
	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/projects", "201"))
	assert.Equal(t, float64(1), count)
}

func TestObserveReadinessWait(t *testing.T) {
	m := New()
	m.ObserveReadinessWait("ok", 4.2)
	m.ObserveReadinessWait("timeout", 120)
	// no panic, histogram accepted both observations
}
