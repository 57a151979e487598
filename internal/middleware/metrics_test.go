package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollectorAggregates(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordSource(10, false)
	m.RecordSource(0, true)
	m.RecordFilter(8, 2)
	m.RecordImagesStored(3)
	m.RecordAPICall(true)
	m.RecordAPICall(false)
	m.RecordDelivery(true)

	report := m.GetReport()

	assert.Equal(t, int64(2), report.SourcesTotal)
	assert.Equal(t, int64(1), report.SourcesFailed)
	assert.Equal(t, int64(10), report.ItemsFetched)
	assert.Equal(t, int64(8), report.ItemsRetained)
	assert.Equal(t, int64(2), report.ItemsFiltered)
	assert.Equal(t, int64(3), report.ImagesStored)
	assert.Equal(t, int64(2), report.APICalls)
	assert.Equal(t, int64(1), report.APIFailures)
	assert.True(t, report.Delivered)
	assert.GreaterOrEqual(t, report.Duration.Nanoseconds(), int64(0))
}
