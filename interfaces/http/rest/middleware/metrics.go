package middleware

import (
	"net/http"
	"time"

	"flowcanvas/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics records request counts and latency per method, route and
// status. The chi route pattern is recorded instead of the raw path so
// /canvas/nodes/{nodeID} stays one series no matter how many nodes
// pass through it.
func Metrics(collector *observability.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unrouted"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			collector.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}
