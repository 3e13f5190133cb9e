// Package analytics publishes query telemetry events to Kafka through a
// buffered, non-blocking collector. Telemetry is best-effort: a full buffer
// drops events and a publish failure is logged, never surfaced to the query
// path.
package analytics

import "time"

// EventType discriminates event payloads on the analytics topic.
type EventType string

const (
	EventQuery      EventType = "query"
	EventZeroResult EventType = "zero_result"
	EventQueryError EventType = "query_error"
)

// QueryEvent describes one retrieval request.
type QueryEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	TokenCount int       `json:"token_count,omitempty"`
	K          int       `json:"k"`
	Returned   int       `json:"returned"`
	TopScore   float64   `json:"top_score,omitempty"`
	CacheHit   bool      `json:"cache_hit"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}
