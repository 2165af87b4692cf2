// Command buildindex performs a bulk build of the on-disk index from a
// JSON corpus file or a Postgres papers table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/maryam-tariqq/DSA-Project/internal/docstore"
	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
	"github.com/maryam-tariqq/DSA-Project/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	source := flag.String("source", "file", "corpus source: file or postgres")
	input := flag.String("input", "corpus.json", "corpus file path when -source=file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var corpus []docstore.Document
	switch *source {
	case "file":
		corpus, err = loadFile(*input)
	case "postgres":
		corpus, err = loadPostgres(context.Background(), cfg.Postgres)
	default:
		fmt.Fprintf(os.Stderr, "unknown source %q (want file or postgres)\n", *source)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("loading corpus failed", "source", *source, "error", err)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "source", *source, "documents", len(corpus))

	start := time.Now()
	idx, err := index.Build(cfg.Index, nil, corpus)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	stats := idx.Stats()
	if err := idx.Close(); err != nil {
		slog.Error("closing index failed", "error", err)
		os.Exit(1)
	}
	slog.Info("index built",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"tokens", stats.TotalTokens,
		"barrels", stats.Barrels,
		"took", time.Since(start).Round(time.Millisecond),
		"data_dir", cfg.Index.DataDir,
	)
}

// loadFile reads a JSON array of documents, arXiv-metadata style.
func loadFile(path string) ([]docstore.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var corpus []docstore.Document
	if err := json.NewDecoder(f).Decode(&corpus); err != nil {
		return nil, fmt.Errorf("decoding corpus %s: %w", path, err)
	}
	return corpus, nil
}

func loadPostgres(ctx context.Context, cfg config.PostgresConfig) ([]docstore.Document, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	var corpus []docstore.Document
	err = client.FetchPapers(ctx, func(p postgres.Paper) error {
		corpus = append(corpus, docstore.Document{
			ID:       p.ID,
			Title:    p.Title,
			Authors:  p.Authors,
			Abstract: p.Abstract,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corpus, nil
}
