package api

import (
	"context"
	"fmt"
	"net/http"

	"researchchat/chat"
	"researchchat/config"
	"researchchat/llm"
	"researchchat/search"

	"go.uber.org/zap"
)

// turnRunner is what the chat handler needs from the orchestrator.
type turnRunner interface {
	Run(ctx context.Context, messages []llm.Message, fn llm.StreamFunc) (*chat.Outcome, error)
}

// Server exposes the chat and search endpoints.
type Server struct {
	cfg          *config.Config
	orchestrator turnRunner
	engine       search.SearchEngine
	logger       *zap.Logger
}

func NewServer(cfg *config.Config, orchestrator *chat.Orchestrator, engine search.SearchEngine, logger *zap.Logger) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		engine:       engine,
		logger:       logger,
	}
}

// Start starts the API server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat", s.withLogging(s.ChatHandler))
	mux.HandleFunc("/search", s.withLogging(s.SearchHandler))
	mux.HandleFunc("/env", s.withLogging(s.EnvHandler))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", s.cfg.AppPort)
	s.logger.Info("starting API server", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
