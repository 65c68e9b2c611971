package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun("widgets", "ok", 30, 12, 12, 2*time.Second)
	m.ObserveRun("widgets", "ok", 10, 5, 0, time.Second)
	m.ObserveRun("gadgets", "failed", 0, 0, 0, time.Second)

	assert.Equal(t, 40.0, testutil.ToFloat64(m.fetched.WithLabelValues("widgets")))
	assert.Equal(t, 17.0, testutil.ToFloat64(m.kept.WithLabelValues("widgets")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.written.WithLabelValues("widgets")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("widgets", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gadgets", "failed")))
}
