package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	histogram, err := provider.Meter("test").Float64Histogram("request.duration")
	require.NoError(t, err)

	h := MetricsMiddleware(histogram)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	data, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(1), data.DataPoints[0].Count)

	status, ok := data.DataPoints[0].Attributes.Value("http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusTeapot), status.AsInt64())
}

func TestRequireActor_StoresActorInContext(t *testing.T) {
	var got int64
	h := RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetActorID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(42), got)
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func requestEndRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		if record["msg"] == "http_request_end" {
			return record
		}
	}
	t.Fatal("no http_request_end record")
	return nil
}

func TestLoggingMiddleware_LogsActorResolvedDownstream(t *testing.T) {
	chain := LoggingMiddleware()(RequireActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("actor present", func(t *testing.T) {
		buf := captureLogs(t)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ActorHeader, "42")
		chain.ServeHTTP(httptest.NewRecorder(), req)

		record := requestEndRecord(t, buf)
		assert.EqualValues(t, 42, record["actor_id"])
		assert.EqualValues(t, http.StatusNoContent, record["status_code"])
	})

	t.Run("actor missing", func(t *testing.T) {
		buf := captureLogs(t)
		chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		record := requestEndRecord(t, buf)
		assert.NotContains(t, record, "actor_id")
		assert.EqualValues(t, http.StatusUnauthorized, record["status_code"])
	})
}
