package middleware

import (
	"net/http"
	"time"

	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

// Logging logs each request with its id, status and size. Health and scrape endpoints log at
// debug.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		log := logger.L().Info
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			log = logger.L().Debug
		}
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Int("bytes", rw.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", remoteHost(r)),
		}
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			fields = append(fields, zap.String("forwarded_for", fwd))
		}
		log("request", fields...)
	})
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

// Flush keeps streaming responses working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
