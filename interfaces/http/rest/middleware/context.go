package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"flowcanvas/pkg/common"
)

// RequestContext copies the chi request id into the shared context keys
// and echoes it back to the client. Downstream layers read the id and
// the request start time from the context without depending on chi.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r.WithContext(common.EnrichContext(r.Context(), id)))
	})
}
