package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMeter_Disabled(t *testing.T) {
	m := New(Config{Enabled: false, ServiceName: "teamskills"})

	counter, err := m.Operations()
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	_, err = m.RequestDuration()
	assert.NoError(t, err)
}

func TestMeter_OperationsCounterRecords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := &Meter{meter: provider.Meter("teamskills")}

	counter, err := m.Operations()
	require.NoError(t, err)
	counter.Add(context.Background(), 2, metric.WithAttributes(
		attribute.String("operation", "add_user_permissions"),
		attribute.String("outcome", "ok"),
	))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	got := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, OperationsCounter, got.Name)
	sum, ok := got.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}
