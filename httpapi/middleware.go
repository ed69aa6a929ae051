package httpapi

import (
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// WithRequestID decorates a handler with request ids for tracing: incoming
// ids are reused, otherwise a fresh uuid is generated, and the id is
// propagated in the response header. Each request is logged on completion.
func WithRequestID(logger log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		rw.Header().Set(requestIDHeader, requestID)

		begin := time.Now()
		next.ServeHTTP(rw, r)
		logger.Log(
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"took", time.Since(begin),
		)
	})
}
