package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("manual", "failure"))

	RecordRun("manual", false, 250*time.Millisecond)

	after := testutil.ToFloat64(RunsTotal.WithLabelValues("manual", "failure"))
	assert.Equal(t, before+1, after)
}

func TestRecordSchedulerState(t *testing.T) {
	RecordSchedulerState(true, 15)
	assert.Equal(t, float64(1), testutil.ToFloat64(SchedulerRunning))
	assert.Equal(t, float64(15), testutil.ToFloat64(SchedulerInterval))

	RecordSchedulerState(false, 15)
	assert.Equal(t, float64(0), testutil.ToFloat64(SchedulerRunning))
}
