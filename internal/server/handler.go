// Package server exposes the retrieval engine over HTTP: the search endpoint,
// cache management, corpus stats, and health probes.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bet0x/bm25-retrieval-service/internal/analytics"
	"github.com/bet0x/bm25-retrieval-service/internal/cache"
	"github.com/bet0x/bm25-retrieval-service/internal/retriever"
	"github.com/bet0x/bm25-retrieval-service/pkg/logger"
	"github.com/bet0x/bm25-retrieval-service/pkg/metrics"
	"github.com/bet0x/bm25-retrieval-service/pkg/tracing"
)

// SearchResponse is the JSON body of a search request.
type SearchResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Results []retriever.Result `json:"results"`
}

// Handler serves the retrieval API. Cache, collector, and metrics are
// optional; a nil value disables that concern.
type Handler struct {
	retriever *retriever.Retriever
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	maxK      int
	logger    *slog.Logger
}

// New creates a Handler over a constructed retriever.
func New(r *retriever.Retriever, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, maxK int) *Handler {
	return &Handler{
		retriever: r,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		maxK:      maxK,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search?q=...&k=... . Per-query scoring failures
// have already been contained by the retriever, so the response is always
// 200 with zero or more results once the request itself is well-formed.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	k := h.retriever.K()
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		if parsed > h.maxK {
			parsed = h.maxK
		}
		k = parsed
	}

	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestIDFromContext(ctx))
	span.SetAttr("k", k)

	var results []retriever.Result
	var err error
	cacheHit := false

	retrieve := func() []retriever.Result {
		rctx, child := tracing.StartChildSpan(ctx, "retrieve")
		defer child.End()
		return h.retriever.RetrieveK(rctx, query, k)
	}
	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, k, func() ([]retriever.Result, error) {
			return retrieve(), nil
		})
	} else {
		results = retrieve()
	}
	if err != nil {
		// Only cache plumbing can fail here; the retrieval itself degrades
		// to an empty list internally.
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	span.SetAttr("results", len(results))
	span.SetAttr("cache_hit", cacheHit)
	span.End()
	span.Log()

	latency := time.Since(start)
	h.recordQuery(results, cacheHit, latency)

	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	if h.collector != nil {
		event := analytics.QueryEvent{
			Type:      analytics.EventQuery,
			Query:     query,
			K:         k,
			Returned:  len(results),
			CacheHit:  cacheHit,
			LatencyMs: latency.Milliseconds(),
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestIDFromContext(ctx),
		}
		if len(results) == 0 {
			event.Type = analytics.EventZeroResult
		} else if score, ok := results[0].Metadata["score"].(float64); ok {
			event.TopScore = score
		}
		h.collector.Track(event)
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// Stats answers GET /api/v1/stats with corpus and backend information.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": h.retriever.DocCount(),
		"terms":     h.retriever.TermCount(),
		"backend":   h.retriever.BackendName(),
		"default_k": h.retriever.K(),
	})
}

// CacheStats answers GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate answers POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) recordQuery(results []retriever.Result, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if len(results) == 0 {
		outcome = "zero_result"
	}
	h.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	h.metrics.QueryResultsCount.Observe(float64(len(results)))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
