package metrics

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transport wraps next so every outbound request is counted, timed and
// logged with a request id. A nil next uses http.DefaultTransport; a nil reg
// only logs.
func Transport(reg *Registry, logger *zap.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requestID := uuid.NewString()
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", requestID)

		if reg != nil {
			reg.InFlightInc()
			defer reg.InFlightDec()
		}

		start := time.Now()
		resp, err := next.RoundTrip(req)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		if reg != nil {
			reg.RecordProviderRequest(req.URL.Host, status, duration.Seconds())
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.String("path", req.URL.Path),
			zap.Int("status", status),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		}
		if err != nil {
			logger.Warn("data request failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("data request", fields...)
		}
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
