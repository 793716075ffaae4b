// Command rag ingests files and answers queries from the terminal,
// sharing the pipeline with the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/ingest"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/vectorstore"
	"document-qa/internal/vectorstore/chromemdb"
	"document-qa/internal/vectorstore/memory"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Query to be answered")
	topK := flag.Int("topk", 0, "Number of chunks to retrieve (0 uses the configured default)")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, do not embed or store")
	flag.Parse()

	if (*filePath == "") == (*query == "") {
		log.Fatal().Msg("provide exactly one of -file or -query")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	if *filePath != "" {
		ingestFile(cfg, *filePath, *dryRun)
		return
	}
	runQuery(cfg, *query, *topK)
}

func openStore(cfg *config.Config) vectorstore.Store {
	if cfg.VectorDB.InMemory {
		return memory.NewStore()
	}
	store, err := chromemdb.NewStore(&cfg.VectorDB)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening vector store")
	}
	return store
}

func ingestFile(cfg *config.Config, path string, dryRun bool) {
	text, fileType, err := parser.Parse(path)
	if err != nil {
		log.Fatal().Err(err).Msg("error parsing document")
	}

	if dryRun {
		fmt.Printf("parsed %s (%s): %d characters\n", path, fileType, len(text))
		fmt.Println(text)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.IngestTimeout())
	defer cancel()

	store := openStore(cfg)
	defer store.Close()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing embedder")
	}

	id, err := helper.NewDocumentID()
	if err != nil {
		log.Fatal().Err(err).Msg("error generating document id")
	}

	ingestor := ingest.NewIngestor(&cfg.RAG, store, embedder, nil)
	doc, err := ingestor.Ingest(ctx, models.Document{
		ID:       id,
		Filename: helper.SanitizeFilename(path),
		FileType: fileType,
		Text:     text,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error ingesting document")
	}

	fmt.Printf("ingested %s as %s (%d chunks)\n", path, doc.ID, doc.ChunkCount)
}

func runQuery(cfg *config.Config, query string, topK int) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout())
	defer cancel()

	store := openStore(cfg)
	defer store.Close()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing embedder")
	}

	service := rag.NewService(&cfg.RAG, store, embedder, rag.NewGenerator(&cfg.GenLLM))
	result, err := service.Query(ctx, query, topK)
	if err != nil {
		log.Fatal().Err(err).Msg("error querying")
	}

	fmt.Printf("Query:\n%s\n\n", result.Query)
	fmt.Printf("Answer:\n%s\n\n", result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("Sources:")
		for i, src := range result.Sources {
			fmt.Printf("  %d. %s (chunk %d, score %.3f)\n",
				i+1, src.Metadata.Filename, src.Metadata.ChunkIndex, src.Score)
		}
	}
}
