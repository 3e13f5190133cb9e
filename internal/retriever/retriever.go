// Package retriever orchestrates the retrieval pipeline: it owns the corpus,
// builds the index once at construction, scores incoming queries through a
// swappable backend, and assembles top-k results with per-request metadata
// copies. A constructed Retriever is immutable and safe for concurrent
// queries.
package retriever

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sort"

	"github.com/bet0x/bm25-retrieval-service/internal/index"
	"github.com/bet0x/bm25-retrieval-service/internal/scorer"
	"github.com/bet0x/bm25-retrieval-service/internal/tokenizer"
	"github.com/bet0x/bm25-retrieval-service/pkg/errors"
	"github.com/bet0x/bm25-retrieval-service/pkg/logger"
)

// Result pairs a document's original text with a copy of its metadata. The
// copy always carries a "score" entry holding the BM25 score for the current
// query.
type Result struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Retriever holds the corpus and its index for the process lifetime.
type Retriever struct {
	docs     []index.Document
	idx      *index.Index
	backend  scorer.Backend
	tokenize tokenizer.Func
	k        int
	logger   *slog.Logger
}

type options struct {
	backendName string
	backend     scorer.Backend
	params      scorer.Params
	tokenize    tokenizer.Func
	logger      *slog.Logger
	onFallback  func(error)
}

// Option configures retriever construction.
type Option func(*options)

// WithBackend selects the scoring backend by name ("auto", "batch",
// "scalar"). An unknown name fails construction.
func WithBackend(name string) Option {
	return func(o *options) { o.backendName = name }
}

// WithScorerBackend injects a scoring backend directly, bypassing selection
// by name. The backend must honour the scorer.Backend contract.
func WithScorerBackend(b scorer.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithParams overrides the BM25 constants.
func WithParams(p scorer.Params) Option {
	return func(o *options) { o.params = p }
}

// WithTokenizer overrides the tokenisation policy. The same policy is applied
// to corpus texts and queries.
func WithTokenizer(fn tokenizer.Func) Option {
	return func(o *options) { o.tokenize = fn }
}

// WithLogger injects the logger used for per-query failure reporting.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFallbackHook registers a callback invoked when the accelerated backend
// is unavailable and the retriever downgrades to the scalar path.
func WithFallbackHook(fn func(error)) Option {
	return func(o *options) { o.onFallback = fn }
}

// New builds a Retriever over parallel text and metadata sequences. Document
// ids 0..n-1 are assigned in input order. It fails when the sequences differ
// in length or k is not positive, and when an explicitly named scoring
// backend does not exist. Metadata maps are copied so the corpus owns its
// data; nil entries become empty maps.
func New(texts []string, metadatas []map[string]any, k int, opts ...Option) (*Retriever, error) {
	if len(texts) != len(metadatas) {
		return nil, errors.Newf(errors.ErrInvalidArgument, http.StatusBadRequest,
			"got %d texts but %d metadata entries", len(texts), len(metadatas))
	}
	if k <= 0 {
		return nil, errors.Newf(errors.ErrInvalidArgument, http.StatusBadRequest,
			"k must be positive, got %d", k)
	}

	o := options{
		backendName: scorer.BackendAuto,
		params:      scorer.DefaultParams(),
		tokenize:    tokenizer.Tokenize,
		logger:      slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	backend := o.backend
	if backend == nil {
		var err error
		backend, err = scorer.Select(o.backendName, o.params)
		if err != nil {
			if o.backendName != scorer.BackendAuto {
				return nil, err
			}
			// Best-effort acceleration: fall back to the scalar baseline and
			// keep going.
			fallbackErr := errors.Newf(errors.ErrAccelerationUnavailable,
				http.StatusInternalServerError, "%v", err)
			o.logger.Warn("accelerated scoring unavailable, using scalar backend", "error", err)
			if o.onFallback != nil {
				o.onFallback(fallbackErr)
			}
			backend = scorer.NewScalar(o.params)
		}
	}

	docs := make([]index.Document, len(texts))
	for i, text := range texts {
		meta := make(map[string]any, len(metadatas[i]))
		for key, value := range metadatas[i] {
			meta[key] = value
		}
		docs[i] = index.Document{ID: i, Text: text, Metadata: meta}
	}

	return &Retriever{
		docs:     docs,
		idx:      index.Build(texts, o.tokenize),
		backend:  backend,
		tokenize: o.tokenize,
		k:        k,
		logger:   o.logger,
	}, nil
}

// Retrieve tokenizes the query, scores every document, and returns the top k
// by score descending with ties broken by ascending document id. Zero-scored
// documents still fill result slots up to min(k, corpus size). Scoring
// failures are contained: the query yields an empty list and the failure is
// logged, never propagated.
func (r *Retriever) Retrieve(ctx context.Context, query string) []Result {
	return r.RetrieveK(ctx, query, r.k)
}

// RetrieveK is Retrieve with a per-call k override; non-positive k falls back
// to the configured default.
func (r *Retriever) RetrieveK(ctx context.Context, query string, k int) []Result {
	if k <= 0 {
		k = r.k
	}
	n := r.idx.DocCount()
	if n == 0 {
		return []Result{}
	}

	tokens := r.tokenize(query)
	scores, err := r.backend.ScoreAll(tokens, r.idx)
	if err != nil {
		r.reportQueryFailure(ctx, query, errors.Newf(errors.ErrQueryProcessing,
			http.StatusInternalServerError, "backend %s: %v", r.backend.Name(), err))
		return []Result{}
	}
	if len(scores) != n {
		r.reportQueryFailure(ctx, query, errors.Newf(errors.ErrQueryProcessing,
			http.StatusInternalServerError, "backend %s returned %d scores for %d documents",
			r.backend.Name(), len(scores), n))
		return []Result{}
	}
	for _, s := range scores {
		if math.IsNaN(s) {
			r.reportQueryFailure(ctx, query, errors.Newf(errors.ErrQueryProcessing,
				http.StatusInternalServerError, "backend %s produced NaN score", r.backend.Name()))
			return []Result{}
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})
	if k > n {
		k = n
	}

	results := make([]Result, 0, k)
	for _, docID := range order[:k] {
		doc := r.docs[docID]
		meta := make(map[string]any, len(doc.Metadata)+1)
		for key, value := range doc.Metadata {
			meta[key] = value
		}
		// The score is request-specific; always overwrite any stored value.
		meta["score"] = scores[docID]
		results = append(results, Result{Text: doc.Text, Metadata: meta})
	}
	return results
}

func (r *Retriever) reportQueryFailure(ctx context.Context, query string, err error) {
	log := r.logger
	if requestID := logger.RequestIDFromContext(ctx); requestID != "" {
		log = log.With("request_id", requestID)
	}
	log.Error("query degraded to empty result list", "query", query, "error", err)
}

// K returns the configured default result count.
func (r *Retriever) K() int { return r.k }

// DocCount returns the corpus size.
func (r *Retriever) DocCount() int { return r.idx.DocCount() }

// TermCount returns the number of distinct indexed terms.
func (r *Retriever) TermCount() int { return r.idx.TermCount() }

// BackendName reports which scoring backend was selected at construction.
func (r *Retriever) BackendName() string { return r.backend.Name() }
