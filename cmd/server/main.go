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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/catalog"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/ingest"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/server"
	"document-qa/internal/vectorstore"
	"document-qa/internal/vectorstore/chromemdb"
	"document-qa/internal/vectorstore/memory"
)

const shutdownGrace = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Secrets come from the environment; .env is a convenience for dev.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	var store vectorstore.Store
	if cfg.VectorDB.InMemory {
		store = memory.NewStore()
		log.Info().Msg("using in-memory vector store")
	} else {
		store, err = chromemdb.NewStore(&cfg.VectorDB)
		if err != nil {
			log.Fatal().Err(err).Msg("error opening vector store")
		}
		log.Info().Str("path", cfg.VectorDB.Path).
			Str("collection", cfg.VectorDB.Collection).Msg("vector store ready")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing embedder")
	}

	generator := rag.NewGenerator(&cfg.GenLLM)

	// The catalog is optional bookkeeping: no DSN, no catalog.
	var cat ingest.Catalog
	var catClose func() error
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c, err := catalog.Connect(ctx, &cfg.Database)
		if err != nil {
			cancel()
			log.Fatal().Err(err).Msg("error connecting to catalog database")
		}
		if err := c.Init(ctx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("error initializing catalog database")
		}
		cancel()
		cat = c
		catClose = c.Close
		log.Info().Msg("document catalog ready")
	}

	ingestor := ingest.NewIngestor(&cfg.RAG, store, embedder, cat)
	querier := rag.NewService(&cfg.RAG, store, embedder, generator)
	srv := server.New(cfg, ingestor, querier, store, parser.Parse)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown did not drain in time")
	}

	// Close backends only after in-flight requests have drained.
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("error closing vector store")
	}
	if catClose != nil {
		if err := catClose(); err != nil {
			log.Error().Err(err).Msg("error closing catalog database")
		}
	}
	log.Info().Msg("bye")
}
