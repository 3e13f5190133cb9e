// Package index builds the immutable statistical index the BM25 scorer reads:
// per-term posting lists, document lengths, and document frequencies. The
// index is built once from the full corpus; there is no incremental update
// path, a changed corpus means a full rebuild.
package index

import (
	"sort"

	"github.com/bet0x/bm25-retrieval-service/internal/tokenizer"
)

// Document is one corpus entry. ID is the document's position in the corpus,
// assigned once at construction and never reused or reassigned.
type Document struct {
	ID       int
	Text     string
	Metadata map[string]any
}

// Posting records one document's term frequency for a term. Posting lists are
// ordered by ascending DocID.
type Posting struct {
	DocID     int
	Frequency int
}

// Index holds the corpus statistics. Immutable once built; concurrent readers
// need no coordination.
type Index struct {
	postings     map[string][]Posting
	docFreq      map[string]int
	docLengths   []int
	avgDocLength float64
	docCount     int
}

// Build tokenizes every text once and accumulates postings, document lengths,
// and document frequencies. Cost is O(total tokens). An empty corpus yields a
// valid empty index.
func Build(texts []string, tokenize tokenizer.Func) *Index {
	idx := &Index{
		postings:   make(map[string][]Posting),
		docFreq:    make(map[string]int),
		docLengths: make([]int, len(texts)),
		docCount:   len(texts),
	}

	totalTokens := 0
	for docID, text := range texts {
		tokens := tokenize(text)
		idx.docLengths[docID] = len(tokens)
		totalTokens += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, term := range tokens {
			counts[term]++
		}
		for term, freq := range counts {
			// Appending in corpus order keeps posting lists sorted by DocID.
			idx.postings[term] = append(idx.postings[term], Posting{DocID: docID, Frequency: freq})
			idx.docFreq[term]++
		}
	}

	if idx.docCount > 0 {
		idx.avgDocLength = float64(totalTokens) / float64(idx.docCount)
	}
	return idx
}

// Postings returns the posting list for a term, nil when the term is absent.
// Callers must treat the returned slice as read-only.
func (idx *Index) Postings(term string) []Posting {
	return idx.postings[term]
}

// TermFrequency returns the term's frequency in the given document, 0 when
// the document does not contain it.
func (idx *Index) TermFrequency(term string, docID int) int {
	postings := idx.postings[term]
	i := sort.Search(len(postings), func(i int) bool {
		return postings[i].DocID >= docID
	})
	if i < len(postings) && postings[i].DocID == docID {
		return postings[i].Frequency
	}
	return 0
}

// DocFreq returns the number of documents containing the term.
func (idx *Index) DocFreq(term string) int {
	return idx.docFreq[term]
}

// DocLength returns the token count of the given document.
func (idx *Index) DocLength(docID int) int {
	return idx.docLengths[docID]
}

// AvgDocLength returns the mean token count per document, 0 for an empty
// corpus.
func (idx *Index) AvgDocLength() float64 {
	return idx.avgDocLength
}

// DocCount returns the number of documents in the corpus.
func (idx *Index) DocCount() int {
	return idx.docCount
}

// TermCount returns the number of distinct terms in the index.
func (idx *Index) TermCount() int {
	return len(idx.postings)
}
