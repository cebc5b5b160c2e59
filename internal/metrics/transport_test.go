package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel))
}

func TestTransport_RecordsAndLogs(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	reg := NewRegistry()
	client := &http.Client{Transport: Transport(reg, bufferLogger(&buf), nil)}

	resp, err := client.Get(srv.URL + "/v8/finance/chart/TCS.NS")
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, gotID)
	require.NotNil(t, family(t, reg, "allocate_provider_requests_total"))
	assert.Equal(t, 0.0, family(t, reg, "allocate_provider_requests_in_flight").GetMetric()[0].GetGauge().GetValue())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v8/finance/chart/TCS.NS", entry["path"])
	assert.Equal(t, 200.0, entry["status"])
	assert.Equal(t, gotID, entry["request_id"])
	assert.Contains(t, entry, "duration_ms")
}

func TestTransport_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry()
	failing := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client := &http.Client{Transport: Transport(reg, bufferLogger(&buf), failing)}

	_, err := client.Get("http://example.invalid/x")
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, 0.0, entry["status"])
}

func TestTransport_NilRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Transport(nil, nil, nil)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
