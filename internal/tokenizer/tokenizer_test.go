package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "whitespace only",
			text: "   \t\n  ",
			want: []string{},
		},
		{
			name: "lowercases and drops stop words",
			text: "The cat sat",
			want: []string{"cat", "sat"},
		},
		{
			name: "splits on punctuation",
			text: "cat, dog; fox!",
			want: []string{"cat", "dog", "fox"},
		},
		{
			name: "stems plural forms",
			text: "cats and dogs",
			want: []string{"cat", "dog"},
		},
		{
			name: "drops single rune words",
			text: "a x cat",
			want: []string{"cat"},
		},
		{
			name: "keeps digits",
			text: "bm25 ranking",
			want: []string{"bm25", "rank"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "Running dogs chase the quickest cats, repeatedly."
	first := Tokenize(text)
	for i := 0; i < 10; i++ {
		if got := Tokenize(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("Tokenize is not deterministic: run %d gave %v, first run gave %v", i, got, first)
		}
	}
}

func TestTokenizeQueryMatchesCorpusPolicy(t *testing.T) {
	// Corpus text and query must normalise through the same policy: a query
	// for "Cats" has to produce the term indexed for "cats and dogs".
	corpusTerms := Tokenize("cats and dogs")
	queryTerms := Tokenize("Cats")
	if len(queryTerms) != 1 {
		t.Fatalf("expected 1 query term, got %v", queryTerms)
	}
	found := false
	for _, term := range corpusTerms {
		if term == queryTerms[0] {
			found = true
		}
	}
	if !found {
		t.Errorf("query term %q not among corpus terms %v", queryTerms[0], corpusTerms)
	}
}
