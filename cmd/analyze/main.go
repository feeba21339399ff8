package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"datalens/adapters/excel"
	"datalens/adapters/postgres"
	"datalens/adapters/stats"
	"datalens/app"
	"datalens/domain/correlation"
	"datalens/internal"
	"datalens/internal/config"
)

func main() {
	var (
		source    = flag.String("source", "", "xlsx workbook or directory of per-domain CSVs (overrides DATA_SOURCE)")
		method    = flag.String("method", "pearson", "correlation method: pearson or spearman")
		keyColumn = flag.String("key-column", "", "header to use as the record key (default: first column)")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := internal.NewDefaultLogger()

	path := *source
	if path == "" {
		path = cfg.Data.SourcePath
	}
	if path == "" {
		log.Fatal("no data source: pass -source or set DATA_SOURCE")
	}
	m := correlation.Method(*method)
	if m != correlation.MethodPearson && m != correlation.MethodSpearman {
		log.Fatalf("unknown method %q", *method)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	reader := excel.NewWorkbookSource(path)
	keyCol := *keyColumn
	if keyCol == "" {
		keyCol = cfg.Data.KeyColumn
	}
	if keyCol != "" {
		reader = reader.WithKeyColumn(keyCol)
	}

	sweep := app.NewSweepService(
		reader,
		stats.NewEngineAtLevel(cfg.Retrieval.SignificanceLevel),
		postgres.NewCorrelationRepository(db),
		logger,
	)

	report, err := sweep.RunChecked(ctx, m)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Printf("done: %d pairs tried, %d saved, %d significant, %d skipped",
		report.PairsTried, report.Saved, report.Significant, report.Skipped)
}
