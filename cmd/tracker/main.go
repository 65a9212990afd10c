// Command tracker runs the procedural task state tracking service: it
// ingests VLM observations, answers natural-language queries about task
// progress, and transparently falls back to the VLM for anything the state
// tracker cannot answer confidently.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yitzuliu/tracker/pkg/api"
	"github.com/yitzuliu/tracker/pkg/config"
	"github.com/yitzuliu/tracker/pkg/fallback"
	"github.com/yitzuliu/tracker/pkg/imaging"
	"github.com/yitzuliu/tracker/pkg/knowledge"
	"github.com/yitzuliu/tracker/pkg/tracker"
	"github.com/yitzuliu/tracker/pkg/vlmclient"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("TRACKER_CONFIG", "./deploy/config/tracker.json"),
		"path to the JSON configuration file")
	knowledgeBasePath := flag.String("knowledge-base",
		getEnv("TRACKER_KNOWLEDGE_BASE", "./deploy/config/knowledge_base.json"),
		"path to the JSON task/step knowledge base seed file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Initialize(*configPath)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	logger := slog.Default()
	logger.Info("starting tracker service",
		"config", *configPath,
		"knowledge_base", *knowledgeBasePath,
		"listen_addr", cfg.Server.ListenAddr,
	)

	kb := knowledge.NewMemoryAdapter()
	if err := seedKnowledgeBase(kb, *knowledgeBasePath); err != nil {
		logger.Warn("knowledge base seed file not loaded, starting with an empty knowledge base",
			"path", *knowledgeBasePath, "error", err)
	}

	trk := tracker.New(kb, tracker.WithLogger(logger))

	transport := otelhttp.NewTransport(http.DefaultTransport)
	vlm := vlmclient.New(vlmclient.Config{
		BaseURL:     cfg.VLMClient.ModelServerURL,
		Timeout:     cfg.VLMClient.Timeout,
		MaxRetries:  cfg.VLMClient.MaxRetries,
		MaxTokens:   cfg.VLMClient.MaxTokens,
		Temperature: cfg.VLMClient.Temperature,
	}, transport, logger)

	lastCapture := &imaging.MemoryCache{}
	acquirer := imaging.NewAcquirer(imaging.NoopPreprocessor{},
		imaging.TrackerSource{Fetch: trk.LastProcessedImage},
		lastCapture,
	)

	decision := fallback.NewDecisionEngine(cfg.DecisionEngine.ConfidenceThreshold, logger,
		fallback.WithUnknownQueryFallback(cfg.DecisionEngine.EnableUnknownQueryFallback),
		fallback.WithNoStateFallback(cfg.DecisionEngine.EnableNoStateFallback),
	)
	orchestrator := fallback.New(trk, decision, vlm, acquirer, fallback.OrchestratorConfig{
		EnableImageFallback:    cfg.EnableImageFallback,
		FallbackPromptTemplate: cfg.Prompts.FallbackTemplate,
		ImageFallbackTemplate:  cfg.Prompts.ImageFallbackTemplate,
		MaxConcurrentRequests:  cfg.Performance.MaxConcurrentRequests,
		RequestQueueSize:       cfg.Performance.RequestQueueSize,
		ModelTag:               "default",
	}, logger)

	server := api.NewServer(trk, orchestrator, decision, "dev")

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down", "grace_period", cfg.Server.ShutdownGrace)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// seedKnowledgeBaseEntry mirrors one entry of the knowledge base seed file.
type seedKnowledgeBaseEntry struct {
	TaskID    string                `json:"task_id"`
	StepIndex int                   `json:"step_index"`
	Keywords  []string              `json:"keywords"`
	Detail    knowledge.MatchedStep `json:"detail"`
}

func seedKnowledgeBase(kb *knowledge.MemoryAdapter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var entries []seedKnowledgeBaseEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	for _, e := range entries {
		kb.Register(e.TaskID, e.StepIndex, e.Keywords, e.Detail)
	}
	return nil
}
