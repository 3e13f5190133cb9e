package server

import (
	"net/http"
	"time"

	"github.com/bet0x/bm25-retrieval-service/pkg/health"
	"github.com/bet0x/bm25-retrieval-service/pkg/metrics"
	"github.com/bet0x/bm25-retrieval-service/pkg/middleware"
)

// Router assembles the API routes and middleware chain. The metrics argument
// may be nil when the metrics server is disabled.
func Router(h *Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(requestTimeout)(chain)
	chain = middleware.RequestID(chain)
	return chain
}
