package interceptor

import (
	"net/http"
	"time"

	"bankclient/internal/utils"

	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every outgoing API call with a request id and logs its result.
type RequestLogger struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func NewRequestLogger(next http.RoundTripper, logger *zap.Logger) *RequestLogger {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RequestLogger{next: next, logger: logger.With(zap.String("component", "http"))}
}

func (t *RequestLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = utils.NewRequestID()
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("request_id", id),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		t.logger.Warn("api call failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.logger.Debug("api call", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
