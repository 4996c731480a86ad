package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"rag-chatbot/internal/chromemdb"
	"rag-chatbot/internal/chunker"
	"rag-chatbot/internal/config"
	"rag-chatbot/internal/db"
	"rag-chatbot/internal/embedding"
	"rag-chatbot/internal/extractor"
	"rag-chatbot/internal/helper"
	"rag-chatbot/internal/ingest"
	"rag-chatbot/internal/llmservice"
	"rag-chatbot/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Path to a document to ingest")
	query := flag.String("query", "", "Question to answer")
	topK := flag.Int("top-k", 0, "How many chunks to retrieve (0 = config default)")
	user := flag.String("user", "", "Name recorded on uploads and chats")
	list := flag.Bool("list", false, "List uploaded documents")
	deleteID := flag.Int64("delete", 0, "Delete a document and its chunks by id")
	history := flag.Bool("history", false, "Show recent chat history")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()
	switch {
	case *filePath != "":
		ingestFile(ctx, cfg, *filePath, *user)
	case *query != "":
		answerQuery(ctx, cfg, *query, *topK, *user)
	case *list:
		listDocuments(ctx, cfg)
	case *deleteID > 0:
		deleteDocument(ctx, cfg, *deleteID)
	case *history:
		showHistory(ctx, cfg)
	default:
		log.Fatal().Msg("Provide one of -file, -query, -list, -delete or -history")
	}
}

func openIndex(cfg *config.Config) *chromemdb.Index {
	if err := helper.CreateFolder(cfg.RAG.DBPath); err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store folder")
	}
	index, err := chromemdb.New(cfg.RAG.DBPath, cfg.RAG.Collection, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}
	return index
}

func openDB(ctx context.Context, cfg *config.Config) *bun.DB {
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	database := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	return database
}

func ingestFile(ctx context.Context, cfg *config.Config, filePath, user string) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msgf("Error reading file: %s", filePath)
	}

	database := openDB(ctx, cfg)
	defer database.Close()
	index := openIndex(cfg)

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	filename := filepath.Base(filePath)
	doc, err := db.CreateDocument(ctx, database, filename, user)
	if err != nil {
		log.Fatal().Err(err).Msg("Error registering document")
	}

	pipeline := ingest.NewPipeline(
		extractor.New(),
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder,
		index,
	)
	records, err := pipeline.Ingest(ctx, data, doc.ID, filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	if len(records) == 0 {
		log.Warn().Msgf("No text found in %s, nothing was indexed", filename)
		return
	}

	if err := db.StoreChunkMeta(ctx, database, doc.ID, records); err != nil {
		log.Fatal().Err(err).Msg("Error storing chunk metadata")
	}

	log.Info().Msgf("Ingested %s as document %d (%d chunks)", filename, doc.ID, len(records))
}

func answerQuery(ctx context.Context, cfg *config.Config, query string, topK int, user string) {
	index := openIndex(cfg)

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	synth, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing language model client")
	}

	engine := rag.NewEngine(embedder, index, synth, cfg.RAG.TopK)
	result := engine.Answer(ctx, query, topK)

	fmt.Printf("Question:\n%s\n\n", query)
	fmt.Printf("Answer:\n%s\n\n", result.Response)
	if len(result.Sources) > 0 {
		fmt.Println("Sources:")
		helper.PrettyPrint(result.Sources)
	}

	// Chat history is best effort; a missing database must not lose the answer.
	if cfg.Database.DSN != "" {
		database := openDB(ctx, cfg)
		defer database.Close()
		if err := db.SaveChat(ctx, database, user, query, result.Response); err != nil {
			log.Warn().Err(err).Msg("Failed to save chat history")
		}
	}
}

func listDocuments(ctx context.Context, cfg *config.Config) {
	database := openDB(ctx, cfg)
	defer database.Close()

	docs, err := db.ListDocuments(ctx, database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing documents")
	}
	helper.PrettyPrint(docs)
}

func deleteDocument(ctx context.Context, cfg *config.Config, documentID int64) {
	database := openDB(ctx, cfg)
	defer database.Close()
	index := openIndex(cfg)

	if err := index.DeleteDocument(ctx, documentID); err != nil {
		log.Fatal().Err(err).Msg("Error deleting document vectors")
	}
	if err := db.DeleteDocument(ctx, database, documentID); err != nil {
		log.Fatal().Err(err).Msg("Error deleting document")
	}
	log.Info().Msgf("Deleted document %d", documentID)
}

func showHistory(ctx context.Context, cfg *config.Config) {
	database := openDB(ctx, cfg)
	defer database.Close()

	chats, err := db.RecentChats(ctx, database, 50)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading chat history")
	}
	helper.PrettyPrint(chats)
}
