package scorer

import (
	"github.com/bet0x/bm25-retrieval-service/internal/index"
)

// BatchBackend scores term-at-a-time: for each query term it walks the term's
// posting list once and accumulates contributions into a score vector. Work
// is proportional to the matching postings rather than the corpus size, which
// is the accelerated path for selective queries. Results are numerically
// identical to the scalar backend: per document, contributions accumulate in
// the same query-term order.
type BatchBackend struct {
	params Params
}

// NewBatch creates the term-at-a-time backend.
func NewBatch(p Params) *BatchBackend {
	return &BatchBackend{params: p}
}

func (b *BatchBackend) Name() string { return "batch" }

// ScoreAll returns one score per document id; documents matching no query
// term keep a score of exactly 0.
func (b *BatchBackend) ScoreAll(query []string, idx *index.Index) ([]float64, error) {
	scores := make([]float64, idx.DocCount())
	for _, term := range query {
		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := IDF(idx.DocCount(), idx.DocFreq(term))
		for _, p := range postings {
			scores[p.DocID] += idf * tfNorm(float64(p.Frequency), idx.DocLength(p.DocID), idx.AvgDocLength(), b.params)
		}
	}
	return scores, nil
}

var _ Backend = (*BatchBackend)(nil)
