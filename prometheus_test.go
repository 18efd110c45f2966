package sigdex

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordAdd(time.Millisecond, nil)
	c.RecordAdd(time.Millisecond, assert.AnError)
	c.RecordDelete(time.Millisecond, true, nil)
	c.RecordDelete(time.Millisecond, false, nil)
	c.RecordBuffersInUse(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "/" + label.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				byName[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				byName[key] = metric.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, byName["sigdex_adds_total/ok"])
	assert.Equal(t, 1.0, byName["sigdex_adds_total/error"])
	assert.Equal(t, 1.0, byName["sigdex_deletes_total/deleted"])
	assert.Equal(t, 1.0, byName["sigdex_deletes_total/missing"])
	assert.Equal(t, 3.0, byName["sigdex_slice_buffers_in_use"])
}

func TestPrometheusCollectorDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	_, err = NewPrometheusCollector(reg)
	assert.Error(t, err)
}
