package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/treefix50/showtracker/internal/metrics"
)

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)

		route := routeLabel(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(sw.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeLabel collapses request paths onto their route so ids and names do
// not blow up label cardinality.
func routeLabel(path string) string {
	switch {
	case path == "/", path == "/health", path == "/metrics", path == "/shows", path == "/shows/":
		return path
	case strings.HasPrefix(path, "/mirror/"):
		return "/mirror/{name}"
	case strings.HasPrefix(path, "/shows/minEpisodes/"):
		return "/shows/minEpisodes/{episodes}"
	case strings.HasPrefix(path, "/shows/"):
		return "/shows/{id}"
	default:
		return "other"
	}
}
