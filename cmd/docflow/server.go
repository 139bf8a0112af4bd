package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/docflow/agents"
	"github.com/BaSui01/docflow/api/handlers"
	"github.com/BaSui01/docflow/chat"
	"github.com/BaSui01/docflow/config"
	"github.com/BaSui01/docflow/internal/metrics"
	"github.com/BaSui01/docflow/internal/server"
	"github.com/BaSui01/docflow/internal/session"
	"github.com/BaSui01/docflow/internal/store"
	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/llm/retry"
	"github.com/BaSui01/docflow/rag"
)

// Server assembles the docflow service: collaborators, the chat pipeline,
// HTTP handlers and the listener.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager *server.Manager
	collector   *metrics.Collector

	sessionStore *session.Store
	turnRepo     *store.Repository

	healthHandler  *handlers.HealthHandler
	chatHandler    *handlers.ChatHandler
	sessionHandler *handlers.SessionHandler
}

// NewServer creates an unstarted server from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Start wires all components and begins serving.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("docflow", s.logger)

	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init pipeline: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("server started", zap.String("addr", s.httpManager.Addr()))
	return nil
}

// initPipeline builds the chat pipeline and its handlers. The session store
// and turn repository are optional: a connection failure degrades the
// service (no history, no audit) instead of refusing to start.
func (s *Server) initPipeline() error {
	provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
		BaseURL:        s.cfg.LLM.BaseURL,
		APIKey:         s.cfg.LLM.APIKey,
		Model:          s.cfg.LLM.Model,
		EmbeddingModel: s.cfg.LLM.EmbeddingModel,
		Timeout:        s.cfg.LLM.Timeout,
		RateLimitRPS:   s.cfg.LLM.RateLimitRPS,
	}, s.logger)

	policy := retry.DefaultPolicy()
	if s.cfg.LLM.MaxRetries > 0 {
		policy.MaxRetries = s.cfg.LLM.MaxRetries
	}
	retryer := retry.NewBackoffRetryer(policy, s.logger)

	plannerCfg := agents.DefaultPlannerConfig()
	plannerCfg.MaxHistoryRecords = s.cfg.Chat.MaxHistoryRecords
	planner := agents.NewPlanner(provider, retryer, s.collector, plannerCfg, s.logger)
	evaluator := agents.NewEvaluator(provider, retryer, s.collector, agents.DefaultEvaluatorConfig(), s.logger)
	synthesizer := agents.NewSynthesizer(provider, retryer, s.collector, agents.DefaultSynthesizerConfig(), s.logger)

	retriever := rag.NewQdrantRetriever(rag.QdrantConfig{
		Host:       s.cfg.Qdrant.Host,
		Port:       s.cfg.Qdrant.Port,
		APIKey:     s.cfg.Qdrant.APIKey,
		Collection: s.cfg.Qdrant.Collection,
		Timeout:    s.cfg.Qdrant.Timeout,
	}, provider, s.logger)

	counter := rag.NewTiktokenCounter(s.logger)
	gate := rag.NewSufficiencyGate(evaluator, counter, s.cfg.Chat.ContextTokenBudget, s.logger)
	rounds := rag.NewRoundRunner(retriever, 4, s.logger)

	s.healthHandler = handlers.NewHealthHandler(s.logger)

	// nil interface values must stay nil: assigning a nil *session.Store
	// into the interface would make it non-nil.
	var sessionAppender chat.SessionAppender
	var sessionReader chat.SessionStore
	sessionStore, err := session.NewStore(session.Config{
		Addr:       s.cfg.Redis.Addr,
		Password:   s.cfg.Redis.Password,
		DB:         s.cfg.Redis.DB,
		PoolSize:   s.cfg.Redis.PoolSize,
		SessionTTL: s.cfg.Redis.SessionTTL,
	}, s.logger)
	if err != nil {
		s.logger.Warn("session store unavailable, running without conversation history",
			zap.Error(err))
	} else {
		s.sessionStore = sessionStore
		sessionAppender = sessionStore
		sessionReader = sessionStore
		s.sessionHandler = handlers.NewSessionHandler(sessionStore, s.logger)
		s.healthHandler.RegisterCheck(handlers.CheckFunc{
			CheckName: "redis",
			Fn:        sessionStore.Ping,
		})
	}

	var turnRecorder chat.TurnRecorder
	turnRepo, err := store.Open(store.Config{
		Path:         s.cfg.Database.Path,
		MaxOpenConns: s.cfg.Database.MaxOpenConns,
		MaxIdleConns: s.cfg.Database.MaxIdleConns,
	}, s.logger)
	if err != nil {
		s.logger.Warn("turn repository unavailable, running without turn audit",
			zap.Error(err))
	} else {
		s.turnRepo = turnRepo
		turnRecorder = turnRepo
		s.healthHandler.RegisterCheck(handlers.CheckFunc{
			CheckName: "database",
			Fn:        turnRepo.Ping,
		})
	}

	resolver := chat.NewResolver(synthesizer, sessionAppender, s.collector, s.logger)
	service := chat.NewService(planner, rounds, gate, resolver,
		sessionReader, turnRecorder, s.collector, s.cfg.Chat, s.logger)

	s.chatHandler = handlers.NewChatHandler(service, 0, s.logger)
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/chat", s.chatHandler.HandleTurn)
	if s.sessionHandler != nil {
		mux.HandleFunc("/api/v1/sessions", s.sessionHandler.HandleCreate)
	}

	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		Instrument(s.collector),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            s.cfg.Server.Addr,
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

// WaitForShutdown blocks until termination, then releases all resources.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	s.Shutdown(context.Background())
}

// Shutdown stops the listener and closes the stores.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}
	if s.sessionStore != nil {
		if err := s.sessionStore.Close(); err != nil {
			s.logger.Error("session store close failed", zap.Error(err))
		}
	}
	if s.turnRepo != nil {
		if err := s.turnRepo.Close(); err != nil {
			s.logger.Error("turn repository close failed", zap.Error(err))
		}
	}
	s.logger.Info("server stopped")
}
