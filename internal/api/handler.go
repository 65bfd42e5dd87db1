// Package api serves the read-only query endpoints over the analyzed-token cache.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"token-radar/internal/cache"
	"token-radar/internal/domain"
	"token-radar/internal/orchestrator"
)

// HealthMessage is the body of GET /.
const HealthMessage = "Backend is running and healthy!"

// Service is the query surface of the orchestrator.
type Service interface {
	ListAll() []domain.AnalyzedToken
	GetByAddress(address string) (domain.AnalyzedToken, error)
	Status() orchestrator.Status
}

// Handler routes the HTTP API.
type Handler struct {
	svc     Service
	metrics http.Handler
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewHandler creates the router. metrics may be nil to disable /metrics.
func NewHandler(svc Service, metrics http.Handler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:     svc,
		metrics: metrics,
		logger:  logger.Named("api"),
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /{$}", h.handleRoot)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /status", h.handleStatus)
	h.mux.HandleFunc("GET /api/radar-tokens", h.handleList)
	h.mux.HandleFunc("GET /api/token-details/{id}", h.handleDetails)
	if metrics != nil {
		h.mux.Handle("GET /metrics", metrics)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(HealthMessage))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	tokens := h.svc.ListAll()
	if tokens == nil {
		tokens = []domain.AnalyzedToken{}
	}
	h.writeJSON(w, http.StatusOK, tokens)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	token, err := h.svc.GetByAddress(id)
	if errors.Is(err, cache.ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, messageResponse{Message: "Token not found"})
		return
	}
	if err != nil {
		h.logger.Error("token lookup failed", zap.String("id", id), zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Internal error"})
		return
	}
	h.writeJSON(w, http.StatusOK, token)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, h http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.Named("http"),
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
