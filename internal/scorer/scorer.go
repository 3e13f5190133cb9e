// Package scorer computes BM25 relevance scores against a built index. Two
// interchangeable backends implement the same formula: a document-at-a-time
// scalar baseline and a term-at-a-time batch path that skips documents with
// no matching terms. Both are pure readers of the index, so any number of
// queries may be scored concurrently.
package scorer

import (
	"math"

	"github.com/bet0x/bm25-retrieval-service/internal/index"
)

// Default BM25 constants (the "Lucene" variant).
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Params holds the BM25 tuning constants.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the standard k1/b constants.
func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

// Backend scores a tokenized query against every document in the index,
// returning one score per document id. Implementations must be numerically
// equivalent and safe for concurrent use.
type Backend interface {
	Name() string
	ScoreAll(query []string, idx *index.Index) ([]float64, error)
}

// IDF returns the Lucene BM25 inverse document frequency:
//
//	ln(1 + (N - df + 0.5) / (df + 0.5))
//
// A term appearing in no document contributes nothing to any score, so its
// IDF is reported as 0.
func IDF(docCount, docFreq int) float64 {
	if docFreq == 0 {
		return 0
	}
	return math.Log(1 + (float64(docCount)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
}

// tfNorm is the saturated, length-normalised term-frequency component.
func tfNorm(tf float64, docLength int, avgDocLength float64, p Params) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := float64(docLength) / avgDocLength
	return (tf * (p.K1 + 1)) / (tf + p.K1*(1-p.B+p.B*lengthRatio))
}

// Score computes the BM25 score of one document for a tokenized query. A
// document containing none of the query's terms scores exactly 0.
func Score(query []string, docID int, idx *index.Index, p Params) float64 {
	var score float64
	for _, term := range query {
		tf := idx.TermFrequency(term, docID)
		if tf == 0 {
			continue
		}
		idf := IDF(idx.DocCount(), idx.DocFreq(term))
		score += idf * tfNorm(float64(tf), idx.DocLength(docID), idx.AvgDocLength(), p)
	}
	return score
}

// ScalarBackend is the document-at-a-time baseline.
type ScalarBackend struct {
	params Params
}

// NewScalar creates the baseline backend.
func NewScalar(p Params) *ScalarBackend {
	return &ScalarBackend{params: p}
}

func (s *ScalarBackend) Name() string { return "scalar" }

// ScoreAll scores every document id in 0..DocCount independently.
func (s *ScalarBackend) ScoreAll(query []string, idx *index.Index) ([]float64, error) {
	scores := make([]float64, idx.DocCount())
	for docID := range scores {
		scores[docID] = Score(query, docID, idx, s.params)
	}
	return scores, nil
}

var _ Backend = (*ScalarBackend)(nil)
