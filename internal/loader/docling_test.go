package loader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bet0x/bm25-retrieval-service/pkg/config"
)

func doclingConfig(url string) config.DoclingConfig {
	return config.DoclingConfig{
		URL:                  url,
		RequestTimeout:       5 * time.Second,
		MaxConcurrent:        2,
		ImageResolutionScale: 2,
	}
}

func writeDocFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestNewDoclingClientValidation(t *testing.T) {
	if _, err := NewDoclingClient(config.DoclingConfig{}); err == nil {
		t.Fatal("NewDoclingClient accepted empty URL, want error")
	}
	c, err := NewDoclingClient(doclingConfig("http://docling.local/"))
	if err != nil {
		t.Fatalf("NewDoclingClient: %v", err)
	}
	if strings.HasSuffix(c.baseURL, "/") {
		t.Errorf("baseURL %q not trimmed", c.baseURL)
	}
	// Resolution scale outside 1..4 is clamped, not rejected.
	clamped, err := NewDoclingClient(config.DoclingConfig{URL: "http://docling.local", ImageResolutionScale: 9})
	if err != nil {
		t.Fatalf("NewDoclingClient: %v", err)
	}
	if clamped.cfg.ImageResolutionScale != 4 {
		t.Errorf("ImageResolutionScale = %d, want 4", clamped.cfg.ImageResolutionScale)
	}
}

func TestConvert(t *testing.T) {
	var gotPath, gotFileName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		if f := r.MultipartForm.File["document"]; len(f) == 1 {
			gotFileName = f[0].Filename
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content":  "converted text",
			"metadata": map[string]any{"pages": 3.0},
		})
	}))
	defer srv.Close()

	client, err := NewDoclingClient(doclingConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewDoclingClient: %v", err)
	}
	dir := t.TempDir()
	writeDocFile(t, dir, "report.txt", "raw bytes")

	text, metadata, err := client.Convert(context.Background(), filepath.Join(dir, "report.txt"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if gotPath != "/documents/convert" {
		t.Errorf("request path = %q, want /documents/convert", gotPath)
	}
	if gotFileName != "report.txt" {
		t.Errorf("uploaded file name = %q, want report.txt", gotFileName)
	}
	if text != "converted text" {
		t.Errorf("text = %q, want %q", text, "converted text")
	}
	if metadata["source"] != "report.txt" {
		t.Errorf("metadata source = %v, want report.txt", metadata["source"])
	}
	if metadata["content_type"] != "text/plain" {
		t.Errorf("metadata content_type = %v, want text/plain", metadata["content_type"])
	}
	if metadata["pages"] != 3.0 {
		t.Errorf("metadata pages = %v, want 3", metadata["pages"])
	}
}

func TestConvertNoContentFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "done"})
	}))
	defer srv.Close()

	client, err := NewDoclingClient(doclingConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewDoclingClient: %v", err)
	}
	dir := t.TempDir()
	writeDocFile(t, dir, "empty.txt", "x")

	text, _, err := client.Convert(context.Background(), filepath.Join(dir, "empty.txt"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if text != "<No text content found>" {
		t.Errorf("text = %q, want placeholder", text)
	}
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name   string
		result map[string]any
		want   string
	}{
		{"content key", map[string]any{"content": "a"}, "a"},
		{"text key", map[string]any{"text": "b"}, "b"},
		{"markdown key", map[string]any{"markdown": "c"}, "c"},
		{"md_content key", map[string]any{"md_content": "d"}, "d"},
		{"nested document", map[string]any{"document": map[string]any{"md_content": "e"}}, "e"},
		{"empty string skipped", map[string]any{"content": "", "text": "f"}, "f"},
		{"nothing usable", map[string]any{"status": "ok"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractContent(tt.result); got != tt.want {
				t.Errorf("extractContent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		name := r.MultipartForm.File["document"][0].Filename
		if name == "broken.txt" {
			http.Error(w, "conversion failed", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"content": "text of " + name})
	}))
	defer srv.Close()

	client, err := NewDoclingClient(doclingConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewDoclingClient: %v", err)
	}

	dir := t.TempDir()
	writeDocFile(t, dir, "a.txt", "first")
	writeDocFile(t, dir, "broken.txt", "second")
	writeDocFile(t, dir, "z.txt", "third")
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("creating subdir: %v", err)
	}

	corpus, err := client.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	// Three regular files, name order; the subdirectory is skipped.
	if corpus.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", corpus.Len())
	}
	if corpus.Texts[0] != "text of a.txt" {
		t.Errorf("Texts[0] = %q", corpus.Texts[0])
	}
	if corpus.Texts[2] != "text of z.txt" {
		t.Errorf("Texts[2] = %q", corpus.Texts[2])
	}
	// A failed conversion becomes an error document, not an aborted load.
	if !strings.HasPrefix(corpus.Texts[1], "Error during processing:") {
		t.Errorf("Texts[1] = %q, want error placeholder", corpus.Texts[1])
	}
	if corpus.Metadatas[1] == nil {
		t.Error("failed document has nil metadata, want empty map")
	}
}
