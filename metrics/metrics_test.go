package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	collectors := []prometheus.Collector{
		ChannelsCreatedTotal,
		ChannelCreateFailuresTotal,
		ChannelsRetiredTotal,
		ChannelRetireFailuresTotal,
		ChannelEditsTotal,
		ChannelsActive,
		SweepDuration,
		SweepChannelErrorsTotal,
	}
	for _, c := range collectors {
		// Registering again must collide with the promauto registration.
		err := prometheus.DefaultRegisterer.Register(c)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already)
	}
}

func TestCreateFailuresByReason(t *testing.T) {
	before := testutil.ToFloat64(ChannelCreateFailuresTotal.WithLabelValues("provider"))
	ChannelCreateFailuresTotal.WithLabelValues("provider").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ChannelCreateFailuresTotal.WithLabelValues("provider")))
}
