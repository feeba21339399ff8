package main

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datalens/adapters/openai"
	"datalens/adapters/postgres"
	"datalens/api"
	"datalens/app"
	"datalens/internal"
	"datalens/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := internal.NewDefaultLogger()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	embedder, err := openai.NewEmbeddingClient(openai.EmbeddingConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		log.Fatalf("embedding client: %v", err)
	}
	chat, err := openai.NewChatClient(openai.ChatConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.ChatModel,
	})
	if err != nil {
		log.Fatalf("chat client: %v", err)
	}

	index := app.NewEmbeddingIndex(embedder, postgres.NewEmbeddingRepository(db), app.IndexConfig{
		BatchSize:       cfg.Index.BatchSize,
		MaxAttempts:     cfg.Index.MaxAttempts,
		BackoffBase:     cfg.Index.BackoffBase,
		InterBatchDelay: cfg.Index.InterBatchDelay,
	}, logger)
	retrieval := app.NewRetrievalService(index, postgres.NewCorrelationRepository(db), logger)
	generator := app.NewAnswerGenerator(chat, logger)
	queries := app.NewQueryService(retrieval, app.NewContextBuilder(), generator, logger)

	server := api.NewServer(queries, index, logger)
	if err := server.ListenAndServe(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
