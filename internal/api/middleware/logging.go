package middleware

import (
	"net/http"
	"time"

	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Logging logs each request once it completes and, when m is non-nil,
// records it by chi route pattern.
func Logging(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			elapsed := time.Since(start)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.Observe(r.Method, route, rw.status, elapsed)

			fields := []zap.Field{
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.status),
				zap.Int("bytes", rw.bytes),
				zap.Duration("duration", elapsed),
			}
			if sub := GetSubject(r.Context()); sub != "" {
				fields = append(fields, zap.String("subject", sub))
			}
			if rw.status >= http.StatusInternalServerError {
				logger.L().Error("request", fields...)
				return
			}
			logger.L().Info("request", fields...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}
