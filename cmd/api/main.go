// Package main is the entry point for the ranking API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/reelrank/reelrank/internal/api"
	"github.com/reelrank/reelrank/internal/auth"
	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/feed"
	"github.com/reelrank/reelrank/internal/health"
	"github.com/reelrank/reelrank/internal/middleware"
	"github.com/reelrank/reelrank/internal/movie"
	"github.com/reelrank/reelrank/internal/ranking"
	"github.com/reelrank/reelrank/internal/tracing"
	"github.com/reelrank/reelrank/internal/watchlist"
)

const serviceName = "reelrank-api"

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("ReelRank API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		Protocol:     cfg.TracingProtocol,
		Endpoint:     cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	rankingMetrics := ranking.NewMetrics()
	if err := rankingMetrics.Register(registry); err != nil {
		logger.Error("failed to register ranking metrics", "error", err)
		os.Exit(1)
	}

	// Ranked list storage: Postgres when configured, in-memory otherwise.
	var lists ranking.ListRepository
	var dbChecker api.HealthChecker
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		lists = ranking.NewPostgresListRepository(db)
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres list repository")
	} else {
		lists = ranking.NewInMemoryListRepository()
		logger.Warn("DATABASE_URL not set, using in-memory list repository")
	}

	// Comparison sessions: Redis when configured, in-memory otherwise.
	var sessions ranking.SessionStore
	var redisChecker api.HealthChecker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		sessions = ranking.NewRedisSessionStore(redisClient)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis session store")
	} else {
		sessions = ranking.NewInMemorySessionStore()
		logger.Warn("REDIS_URL not set, using in-memory session store")
	}

	// Watchlist and rank event fan-out.
	watchlistRepo := watchlist.NewInMemoryRepository()
	broadcaster := feed.NewBroadcaster(logger)
	notifier := ranking.NewMultiNotifier(logger,
		ranking.NewWatchlistNotifier(watchlistRepo),
		broadcaster,
	)

	engine := ranking.NewEngine(lists, sessions, notifier, rankingMetrics, logger)

	// Optional movie catalog for title resolution.
	var catalog movie.Catalog
	if cfg.CatalogAPIKey != "" {
		catalog = movie.NewCatalogClient(cfg.CatalogBaseURL, cfg.CatalogAPIKey)
		logger.Info("movie catalog enabled", "base_url", cfg.CatalogBaseURL)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	rankingHandlers := api.NewRankingHandlers(engine, catalog)
	watchlistHandlers := api.NewWatchlistHandlers(watchlistRepo)
	feedHandlers := api.NewFeedHandlers(broadcaster)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
	})

	// Rate limiting. The comparison endpoint gets its own store so its
	// tighter window doesn't share buckets with the global limit.
	rateLimitStore := middleware.NewInMemoryRateLimitStore()
	globalLimiter := middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.UserKeyFunc(), httpMetrics)
	comparisonLimitStore := middleware.NewInMemoryRateLimitStore()
	comparisonLimiter := middleware.RateLimiter(comparisonLimitStore, middleware.DefaultComparisonLimit(), middleware.UserKeyFunc(), httpMetrics)

	// Authenticated routes
	protected := http.NewServeMux()
	protected.HandleFunc("/rankings", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rankingHandlers.BeginInsertion(w, r)
		case http.MethodGet:
			rankingHandlers.List(w, r)
		default:
			api.WriteError(w, r.Context(), http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
		}
	})
	protected.Handle("/rankings/comparisons", comparisonLimiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.WriteError(w, r.Context(), http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
			return
		}
		rankingHandlers.ResolveComparison(w, r)
	})))
	protected.HandleFunc("/rankings/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/rerank"):
			rankingHandlers.BeginRerank(w, r)
		case r.Method == http.MethodDelete:
			rankingHandlers.Remove(w, r)
		default:
			api.WriteError(w, r.Context(), http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
		}
	})
	protected.HandleFunc("/watchlist", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			watchlistHandlers.Add(w, r)
		case http.MethodGet:
			watchlistHandlers.List(w, r)
		default:
			api.WriteError(w, r.Context(), http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
		}
	})
	protected.HandleFunc("/watchlist/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			api.WriteError(w, r.Context(), http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
			return
		}
		watchlistHandlers.Remove(w, r)
	})
	protected.HandleFunc("/feed/ws", feedHandlers.Subscribe)

	protectedHandler := middleware.Auth(jwtService)(globalLimiter(protected))

	mux := http.NewServeMux()
	mux.Handle("/rankings", protectedHandler)
	mux.Handle("/rankings/", protectedHandler)
	mux.Handle("/watchlist", protectedHandler)
	mux.Handle("/watchlist/", protectedHandler)
	mux.Handle("/feed/ws", protectedHandler)

	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"` + serviceName + `","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain, outermost first:
	// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> mux
	var handler http.Handler = mux
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down tracer provider", "error", err)
	}

	logger.Info("server stopped")
}
