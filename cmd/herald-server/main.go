// herald-server runs the messaging assistant: webhook in, session engine,
// transport out.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"herald/internal/config"
	"herald/internal/llm"
	"herald/internal/logging"
	"herald/internal/observability"
	"herald/internal/retrieval"
	"herald/internal/router"
	"herald/internal/session"
	"herald/internal/transport"
	"herald/internal/turn"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var port int
	var debug bool

	cmd := &cobra.Command{
		Use:   "herald-server",
		Short: "Conversational assistant for group announcements, polls, and Q&A",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("debug") {
				cfg.Server.Debug = debug
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (optional)")
	cmd.Flags().IntVar(&port, "port", 8080, "webhook server port")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug mode")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logger.Info("starting herald-server on port %d", cfg.Server.Port)

	registry := prometheus.NewRegistry()
	metrics := observability.MustNewMetrics(registry)
	tracer := observability.NewTracer("herald", false)

	store, err := buildSessionStore(cfg)
	if err != nil {
		return err
	}
	history := session.NewMemoryHistory(0)

	llmClient := llm.NewHTTPClient(llm.HTTPConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger.Component("llm"))
	defer llmClient.Close()

	var classifier router.Classifier
	if cfg.LLM.Model != "" {
		classifier = router.NewLLMClassifier(llmClient, logger.Component("classifier"))
	}
	rt := router.New(classifier, logger.Component("router"))

	layers, err := buildLayers(cfg, history, logger)
	if err != nil {
		return err
	}
	combiner := retrieval.NewCombiner(retrieval.CombinerConfig{
		ContentThreshold: cfg.Retrieval.ContentThreshold,
		EnclaveThreshold: cfg.Retrieval.EnclaveThreshold,
		AnswerFloor:      cfg.Retrieval.AnswerFloor,
		AgreementBonus:   cfg.Retrieval.AgreementBonus,
	}, logger.Component("combiner"))

	var sender transport.Sender
	if cfg.Transport.Endpoint != "" {
		sender = transport.NewHTTPSender(transport.HTTPSenderConfig{
			Endpoint:  cfg.Transport.Endpoint,
			AuthToken: cfg.Transport.AuthToken,
		}, logger.Component("sender"))
	} else {
		logger.Warn("no transport endpoint configured; dispatches will be dropped")
		sender = transport.NewMemorySender()
	}

	handler := turn.NewHandler(
		turn.Config{
			HistoryWindow: cfg.Session.HistoryWindow,
			MaxChunkLen:   cfg.Transport.MaxChunkLen,
		},
		store, history, rt, combiner, layers, sender,
		logger.Component("turn"), metrics, tracer,
	)

	server := transport.NewServer(transport.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		EnableCORS:   cfg.Server.EnableCORS,
		Debug:        cfg.Server.Debug,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		AuthToken:    cfg.Webhook.AuthToken,
		CallbackURL:  cfg.Webhook.CallbackURL,
	}, handler, registry, logger.Component("server"))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return server.Start(ctx)
}

func buildSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case "file":
		return session.NewFileStore(cfg.Session.Path)
	default:
		return session.NewMemoryStore(), nil
	}
}

func buildLayers(cfg *config.Config, history session.History, logger *logging.SlogLogger) ([]retrieval.Layer, error) {
	embed := chromem.NewEmbeddingFuncOpenAICompat(
		cfg.LLM.BaseURL, cfg.LLM.APIKey, "text-embedding-3-small", nil)
	content, err := retrieval.NewContentLayer(retrieval.ContentConfig{
		PersistPath: cfg.Content.PersistPath,
		Collection:  cfg.Content.Collection,
		TopK:        cfg.Retrieval.TopK,
	}, embed, logger.Component("content"))
	if err != nil {
		return nil, err
	}

	entries := retrieval.DefaultEnclaveCorpus()
	if cfg.Enclave.CorpusPath != "" {
		entries, err = retrieval.LoadEnclaveCorpus(cfg.Enclave.CorpusPath)
		if err != nil {
			return nil, err
		}
	}
	enclave, err := retrieval.NewEnclaveLayer(entries, logger.Component("enclave"))
	if err != nil {
		return nil, err
	}

	return []retrieval.Layer{
		content,
		enclave,
		retrieval.NewConversationLayer(history, logger.Component("conversation")),
		retrieval.NewActionLayer(),
	}, nil
}
