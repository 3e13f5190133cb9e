// Command retrieverd loads a document corpus, builds the BM25 index once,
// and serves ranked retrieval queries over HTTP until shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bet0x/bm25-retrieval-service/internal/analytics"
	"github.com/bet0x/bm25-retrieval-service/internal/cache"
	"github.com/bet0x/bm25-retrieval-service/internal/loader"
	"github.com/bet0x/bm25-retrieval-service/internal/retriever"
	"github.com/bet0x/bm25-retrieval-service/internal/scorer"
	"github.com/bet0x/bm25-retrieval-service/internal/server"
	"github.com/bet0x/bm25-retrieval-service/pkg/config"
	"github.com/bet0x/bm25-retrieval-service/pkg/health"
	"github.com/bet0x/bm25-retrieval-service/pkg/kafka"
	"github.com/bet0x/bm25-retrieval-service/pkg/logger"
	"github.com/bet0x/bm25-retrieval-service/pkg/metrics"
	pkgredis "github.com/bet0x/bm25-retrieval-service/pkg/redis"
	"github.com/bet0x/bm25-retrieval-service/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting retrieval service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"backend", cfg.Retrieval.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	var corpus *loader.Corpus
	err = resilience.WithTimeout(ctx, cfg.Corpus.LoadTimeout, "corpus-load", func(ctx context.Context) error {
		var loadErr error
		corpus, loadErr = loader.Load(ctx, cfg)
		return loadErr
	})
	if err != nil {
		slog.Error("failed to load corpus", "source", cfg.Corpus.Source, "error", err)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "documents", corpus.Len())

	buildStart := time.Now()
	opts := []retriever.Option{
		retriever.WithBackend(cfg.Retrieval.Backend),
		retriever.WithParams(scorer.Params{K1: cfg.Retrieval.K1, B: cfg.Retrieval.B}),
	}
	if m != nil {
		opts = append(opts, retriever.WithFallbackHook(func(error) {
			m.ScoringFallbackTotal.Inc()
		}))
	}
	r, err := retriever.New(corpus.Texts, corpus.Metadatas, cfg.Retrieval.TopK, opts...)
	if err != nil {
		slog.Error("failed to construct retriever", "error", err)
		os.Exit(1)
	}
	buildDuration := time.Since(buildStart)
	slog.Info("index built",
		"documents", r.DocCount(),
		"terms", r.TermCount(),
		"backend", r.BackendName(),
		"duration", buildDuration,
	)
	if m != nil {
		m.CorpusDocuments.Set(float64(r.DocCount()))
		m.IndexBuildSeconds.Set(buildDuration.Seconds())
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	var collector *analytics.Collector
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.QueryEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.QueryEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.QueryEvents)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if r.DocCount() == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "empty corpus"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", r.DocCount())}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(r, queryCache, collector, m, cfg.Retrieval.MaxK)
	chain := server.Router(h, checker, m, cfg.Server.WriteTimeout)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("retrieval service stopped")
}
