package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bet0x/bm25-retrieval-service/pkg/config"
)

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing corpus file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCorpusFile(t, `{"text": "the cat sat", "metadata": {"source": "a"}}
{"text": "the dog ran", "metadata": {"source": "b"}}

{"text": "no metadata here"}
`)

	corpus, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if corpus.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", corpus.Len())
	}
	if corpus.Texts[0] != "the cat sat" || corpus.Texts[2] != "no metadata here" {
		t.Errorf("texts out of order: %v", corpus.Texts)
	}
	if corpus.Metadatas[1]["source"] != "b" {
		t.Errorf("Metadatas[1] = %v, want source b", corpus.Metadatas[1])
	}
	// Missing metadata normalises to an empty map, never nil.
	if corpus.Metadatas[2] == nil {
		t.Error("Metadatas[2] = nil, want empty map")
	}
}

func TestLoadFileMalformedLine(t *testing.T) {
	path := writeCorpusFile(t, `{"text": "fine"}
{not json}
`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile succeeded on malformed input, want error")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("LoadFile succeeded on missing file, want error")
	}
}

func TestLoadUnknownSource(t *testing.T) {
	cfg := &config.Config{}
	cfg.Corpus.Source = "carrier-pigeon"
	if _, err := Load(context.Background(), cfg); err == nil {
		t.Fatal("Load succeeded with unknown source, want error")
	}
}

func TestCorpusAddNormalisesNilMetadata(t *testing.T) {
	c := &Corpus{}
	c.add("text", nil)
	if c.Metadatas[0] == nil {
		t.Error("add kept nil metadata, want empty map")
	}
}
