package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/contentbridge/pinebridge/internal/config"
	"github.com/contentbridge/pinebridge/internal/domain"
	logpkg "github.com/contentbridge/pinebridge/internal/logger"
	"github.com/contentbridge/pinebridge/internal/metrics"
	chiTransport "github.com/contentbridge/pinebridge/internal/transport/chi"
	openaiEmb "github.com/contentbridge/pinebridge/internal/transport/openai"
	"github.com/contentbridge/pinebridge/internal/transport/pinecone"
	ingestuc "github.com/contentbridge/pinebridge/internal/usecase/ingest"
	searchuc "github.com/contentbridge/pinebridge/internal/usecase/search"
	"github.com/contentbridge/pinebridge/internal/version"
)

func main() {
	// Secrets come from the environment; a .env file is a convenience for
	// local runs and its absence is not an error.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pinebridge gateway",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_name", cfg.Pinecone.IndexName),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	// Build the provider clients in the composition root. A missing credential
	// leaves index and embedders nil: the service stays up and the store
	// and search paths report a configuration error per call.
	var (
		index         domain.VectorIndex
		docEmbedder   domain.BatchEmbedder
		queryEmbedder domain.Embedder
	)

	if cfg.Pinecone.APIKey == "" {
		logger.Warn("Pinecone API key not configured; store and search endpoints are disabled")
	} else {
		pc := pinecone.NewClient(&pinecone.Config{
			APIKey:          cfg.Pinecone.APIKey,
			IndexName:       cfg.Pinecone.IndexName,
			IndexHost:       cfg.Pinecone.IndexHost,
			ControlPlaneURL: cfg.Pinecone.ControlPlaneURL,
			Timeout:         time.Duration(cfg.Pinecone.TimeoutSec) * time.Second,
			Logger:          logger,
		})
		index = pinecone.NewIndex(pc)
		docEmbedder, queryEmbedder = buildEmbedders(cfg, pc, logger)
		if docEmbedder == nil {
			index = nil
		}
	}

	ingestSvc := ingestuc.New(index, docEmbedder, cfg.Embedding.Model)
	searchSvc := searchuc.New(index, queryEmbedder).WithDefaultTopK(cfg.Search.DefaultTopK)

	server := chiTransport.NewServer(ingestSvc, searchSvc, logger).
		WithTopKLimits(cfg.Search.DefaultTopK, cfg.Search.MaxTopK)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedders assembles the document and query embedders for the
// configured provider. Pinecone differentiates the two modes with the
// passage/query input type; OpenAI-compatible providers approximate it
// with instruction prefixes.
func buildEmbedders(
	cfg config.Config, pc *pinecone.Client, logger *zap.Logger,
) (domain.BatchEmbedder, domain.Embedder) {
	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.OpenAI.APIKey == "" {
			logger.Warn("OpenAI API key not configured; store and search endpoints are disabled")
			return nil, nil
		}
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.OpenAI.APIKey,
			BaseURL:    cfg.Embedding.OpenAI.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.OpenAI.Dimensions,
			Provider:   "openai",
			Logger:     logger,
		})
		return withInstruction(base, cfg.Embedding.OpenAI.DocumentInstruction),
			withInstruction(base, cfg.Embedding.OpenAI.QueryInstruction)
	default:
		return pinecone.NewEmbedder(pc, cfg.Embedding.Model, pinecone.InputTypePassage),
			pinecone.NewEmbedder(pc, cfg.Embedding.Model, pinecone.InputTypeQuery)
	}
}

// withInstruction wraps the embedder with an instruction prefix. An empty
// instruction is a no-op prefix.
func withInstruction(base *openaiEmb.Embedder, instruction string) *domain.InstructionEmbedder {
	return domain.NewInstructionEmbedder(base, instruction)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
