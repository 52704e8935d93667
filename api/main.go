package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tradeskills/course-radar/backend/internal/cachestore"
	"github.com/tradeskills/course-radar/backend/internal/config"
	"github.com/tradeskills/course-radar/backend/internal/extract"
	"github.com/tradeskills/course-radar/backend/internal/logger"
	"github.com/tradeskills/course-radar/backend/internal/models"
	"github.com/tradeskills/course-radar/backend/internal/orchestrator"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := cachestore.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init cache store", slog.Any("err", err))
		os.Exit(1)
	}

	extractor := extract.New(extract.Options{
		BaseURL:     cfg.ExtractorBaseURL,
		APIKey:      cfg.ExtractorAPIKey,
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
	}, log)

	engine := orchestrator.New(orchestrator.Options{
		Dispatcher: extractor,
		Poller:     extractor,
		Store:      store,
		Log:        log,
		CacheTTL:   cfg.CacheTTL,
	})

	srv := &server{log: log, store: store, engine: engine}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", srv.handleHealth)
	r.Get("/programmes", srv.handleProgrammes)
	r.Post("/refresh", srv.handleRefresh)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// No write timeout: a full refresh polls extraction jobs for minutes.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

// cors mirrors the permissive headers the frontend expects, answering
// preflight requests before they reach a handler.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type server struct {
	log    *slog.Logger
	store  *cachestore.Store
	engine *orchestrator.Orchestrator
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Health(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	res, err := s.engine.Run(ctx, req)
	if err != nil {
		if orchestrator.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.log.Error("refresh failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleProgrammes serves the merged cache entry, falling back to the
// full-refresh entry when no merge has run yet.
func (s *server) handleProgrammes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	var (
		entry *models.CacheEntry
		err   error
	)
	switch {
	case category != "" && query != "":
		entry, err = s.store.ReadEntry(ctx, category, query)
	default:
		entry, err = s.store.ReadEntry(ctx, orchestrator.MergedCategory, orchestrator.MergedQuery)
		if err == nil && entry == nil {
			entry, err = s.store.ReadEntry(ctx, orchestrator.MergedCategory, orchestrator.FullQuery)
		}
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no cached programmes, run a refresh first"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         entry.EducationData,
		"analytics":    entry.AnalyticsData,
		"cacheVersion": entry.CacheVersion,
		"refreshedAt":  entry.LastRefreshed,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
