// Package loader produces the corpus the retriever is built from: parallel,
// index-aligned text and metadata sequences. Three producers are supported:
// a JSONL file, a PostgreSQL table, and a directory of documents converted
// through a Docling server.
package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bet0x/bm25-retrieval-service/pkg/config"
)

// Corpus holds index-aligned parallel sequences: Metadatas[i] belongs to
// Texts[i].
type Corpus struct {
	Texts     []string
	Metadatas []map[string]any
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.Texts) }

// add appends one document, normalising nil metadata to an empty map.
func (c *Corpus) add(text string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	c.Texts = append(c.Texts, text)
	c.Metadatas = append(c.Metadatas, metadata)
}

// Load builds the corpus from the source selected in the configuration.
func Load(ctx context.Context, cfg *config.Config) (*Corpus, error) {
	switch cfg.Corpus.Source {
	case "file":
		return LoadFile(cfg.Corpus.Path)
	case "postgres":
		return LoadPostgres(ctx, cfg.Postgres)
	case "docling":
		client, err := NewDoclingClient(cfg.Docling)
		if err != nil {
			return nil, err
		}
		return client.LoadDir(ctx, cfg.Corpus.Dir)
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}

// fileDocument is one line of a JSONL corpus file.
type fileDocument struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// LoadFile reads a JSONL corpus: one {"text": ..., "metadata": {...}} object
// per line. Blank lines are skipped; document order follows file order.
func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file %s: %w", path, err)
	}
	defer f.Close()

	corpus := &Corpus{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc fileDocument
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("parsing corpus file %s line %d: %w", path, lineNo, err)
		}
		corpus.add(doc.Text, doc.Metadata)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus file %s: %w", path, err)
	}
	return corpus, nil
}
