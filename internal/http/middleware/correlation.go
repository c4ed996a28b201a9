package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const correlationHeader = "X-Correlation-ID"

// CorrelationID honors the caller's X-Correlation-ID or mints one, echoes
// it on the response, and stamps it onto the request's log context so
// every log line of the request carries it.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		if log := hlog.FromRequest(r); log != nil {
			log.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("correlation_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
