package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bet0x/bm25-retrieval-service/pkg/config"
	"github.com/bet0x/bm25-retrieval-service/pkg/resilience"
)

// DoclingClient converts local document files (PDF, DOCX, ...) to text by
// posting them to a Docling server's synchronous conversion endpoint. Calls
// are wrapped with retry and a circuit breaker so a flapping conversion
// server does not stall corpus loading indefinitely.
type DoclingClient struct {
	baseURL string
	cfg     config.DoclingConfig
	http    *http.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewDoclingClient validates the configuration and builds a client.
func NewDoclingClient(cfg config.DoclingConfig) (*DoclingClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("docling URL cannot be empty")
	}
	scale := cfg.ImageResolutionScale
	if scale < 1 {
		scale = 1
	} else if scale > 4 {
		scale = 4
	}
	cfg.ImageResolutionScale = scale
	return &DoclingClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker: resilience.NewCircuitBreaker("docling", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "docling-loader"),
	}, nil
}

// LoadDir converts every regular file in dir (non-recursive, ordered by file
// name for stable document ids) and assembles the corpus. A file that fails
// conversion becomes an error-text document instead of aborting the load.
func (c *DoclingClient) LoadDir(ctx context.Context, dir string) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	texts := make([]string, len(files))
	metadatas := make([]map[string]any, len(files))

	g, gctx := errgroup.WithContext(ctx)
	limit := c.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			text, metadata, err := c.Convert(gctx, file)
			if err != nil {
				c.logger.Error("conversion failed", "file", file, "error", err)
				text = fmt.Sprintf("Error during processing: %v", err)
				metadata = map[string]any{}
			}
			texts[i] = text
			metadatas[i] = metadata
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	corpus := &Corpus{}
	for i := range texts {
		corpus.add(texts[i], metadatas[i])
	}
	c.logger.Info("corpus loaded via docling", "dir", dir, "documents", corpus.Len())
	return corpus, nil
}

// Convert posts one file to the conversion endpoint and returns the extracted
// text plus response metadata merged with source and content type.
func (c *DoclingClient) Convert(ctx context.Context, filePath string) (string, map[string]any, error) {
	fileName := filepath.Base(filePath)
	contentType := mimeTypeFor(fileName)

	var text string
	var metadata map[string]any
	err := resilience.Retry(ctx, "docling-convert", resilience.RetryConfig{}, func() error {
		return c.breaker.Execute(func() error {
			var convertErr error
			text, metadata, convertErr = c.convertOnce(ctx, filePath, fileName, contentType)
			return convertErr
		})
	})
	if err != nil {
		return "", nil, err
	}
	return text, metadata, nil
}

func (c *DoclingClient) convertOnce(ctx context.Context, filePath, fileName, contentType string) (string, map[string]any, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return "", nil, fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	if err := writer.WriteField("extract_tables_as_images", strconv.FormatBool(c.cfg.ExtractTablesAsImages)); err != nil {
		return "", nil, fmt.Errorf("building multipart form: %w", err)
	}
	if err := writer.WriteField("image_resolution_scale", strconv.Itoa(c.cfg.ImageResolutionScale)); err != nil {
		return "", nil, fmt.Errorf("building multipart form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", nil, fmt.Errorf("building multipart form: %w", err)
	}

	endpoint := c.baseURL + "/documents/convert"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Info("sending document for conversion", "file", fileName)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("calling docling: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", nil, fmt.Errorf("docling returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("decoding docling response: %w", err)
	}

	content := extractContent(result)
	if content == "" {
		c.logger.Warn("no content in docling response", "file", fileName)
		content = "<No text content found>"
	}

	metadata := map[string]any{
		"source":       fileName,
		"content_type": contentType,
	}
	if extra, ok := result["metadata"].(map[string]any); ok {
		for key, value := range extra {
			metadata[key] = value
		}
	}
	return content, metadata, nil
}

// extractContent pulls the converted text out of the response, checking the
// candidate keys Docling variants use, including a nested document object.
func extractContent(result map[string]any) string {
	for _, key := range []string{"content", "text", "markdown", "md_content"} {
		if s, ok := result[key].(string); ok && s != "" {
			return s
		}
	}
	if doc, ok := result["document"].(map[string]any); ok {
		for _, key := range []string{"content", "text", "markdown", "md_content"} {
			if s, ok := doc[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".ppt":  "application/vnd.ms-powerpoint",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".xml":  "application/xml",
	".json": "application/json",
	".md":   "text/markdown",
}

func mimeTypeFor(fileName string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return "application/octet-stream"
}
