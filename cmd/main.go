package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/chromemdb"
	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/ingest"
	"document-qa/internal/llmservice"
	"document-qa/internal/rag"
	"document-qa/internal/server"
	"document-qa/internal/session"
	"document-qa/internal/vectorstore"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	// Storage roots must be writable before anything else runs.
	if err := helper.CreateFolder(cfg.Storage.UploadDir); err != nil {
		log.Fatal().Err(err).Msg("Error creating upload folder")
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	embedFn := embedding.EmbedFunc(embedder, time.Duration(cfg.EmbedLLM.TimeoutSeconds)*time.Second)

	llmClient, err := llmservice.NewClient(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat client")
	}

	sess := session.New(cfg.RAG.TopK)
	coordinator := ingest.NewCoordinator(store, sess, embedFn, cfg.RAG, cfg.Storage.UploadDir)
	orchestrator := rag.NewRAG(sess, embedder, llmClient)

	srv := server.New(cfg.Server, coordinator, orchestrator, llmClient, sess)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down server")
	}
}

func newStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Storage.Driver {
	case "pgvector":
		return db.NewStore(cfg.Storage.PostgresDSN, cfg.Storage.PostgresKey, cfg.Storage.Debug)
	default:
		if err := helper.CreateFolder(cfg.Storage.DBPath); err != nil {
			return nil, err
		}
		return chromemdb.NewStore(cfg.Storage.DBPath, cfg.Storage.Collection)
	}
}
