package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Corpus.Source != "file" {
		t.Errorf("Corpus.Source = %q, want file", cfg.Corpus.Source)
	}
	if cfg.Retrieval.TopK != 4 || cfg.Retrieval.Backend != "auto" {
		t.Errorf("Retrieval = %+v, want TopK 4 backend auto", cfg.Retrieval)
	}
	if cfg.Retrieval.K1 != 1.2 || cfg.Retrieval.B != 0.75 {
		t.Errorf("BM25 constants = k1 %v, b %v; want 1.2, 0.75", cfg.Retrieval.K1, cfg.Retrieval.B)
	}
	if cfg.Redis.CacheTTL != 60*time.Second {
		t.Errorf("Redis.CacheTTL = %v, want 60s", cfg.Redis.CacheTTL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
corpus:
  source: docling
  dir: /data/docs
retrieval:
  topK: 8
  maxK: 50
  backend: scalar
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Corpus.Source != "docling" || cfg.Corpus.Dir != "/data/docs" {
		t.Errorf("Corpus = %+v", cfg.Corpus)
	}
	if cfg.Retrieval.TopK != 8 || cfg.Retrieval.Backend != "scalar" {
		t.Errorf("Retrieval = %+v", cfg.Retrieval)
	}
	// Unset fields keep their defaults.
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Metrics.Port = %d, want default 9090", cfg.Metrics.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on missing file, want error")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad corpus source", "corpus:\n  source: s3\n"},
		{"non-positive topK", "retrieval:\n  topK: 0\n"},
		{"maxK below topK", "retrieval:\n  topK: 10\n  maxK: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("Load succeeded, want validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BRS_SERVER_PORT", "7777")
	t.Setenv("BRS_CORPUS_SOURCE", "postgres")
	t.Setenv("BRS_RETRIEVAL_BACKEND", "batch")
	t.Setenv("BRS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Corpus.Source != "postgres" {
		t.Errorf("Corpus.Source = %q, want postgres", cfg.Corpus.Source)
	}
	if cfg.Retrieval.Backend != "batch" {
		t.Errorf("Retrieval.Backend = %q, want batch", cfg.Retrieval.Backend)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, Database: "retrieval",
		User: "svc", Password: "secret", SSLMode: "disable",
	}
	want := "host=db port=5432 user=svc password=secret dbname=retrieval sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
