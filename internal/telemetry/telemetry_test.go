package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		RecomputeRunsTotal,
		RecomputeDuration,
		RecordsWrittenTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	}
	for _, c := range collectors {
		require.NotNil(t, c)
	}
}

func TestObserveRecompute(t *testing.T) {
	before := testutil.ToFloat64(RecomputeRunsTotal.WithLabelValues("test-job", StatusSuccess))
	beforeErr := testutil.ToFloat64(RecomputeRunsTotal.WithLabelValues("test-job", StatusError))

	ObserveRecompute("test-job", 0.1, nil)
	ObserveRecompute("test-job", 0.2, errors.New("store down"))
	ObserveRecompute("test-job", 0.3, nil)

	assert.Equal(t, before+2, testutil.ToFloat64(RecomputeRunsTotal.WithLabelValues("test-job", StatusSuccess)))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(RecomputeRunsTotal.WithLabelValues("test-job", StatusError)))
}
