// Command ingest is a thin CLI wrapper around the ragcore engine for
// running an incremental ingest sweep (and, optionally, offline Q&A
// generation for a single document) outside of the HTTP server process.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/voidtrace/ragcore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	docsDir := flag.String("docs-dir", "", "Override docs directory")
	genQAFor := flag.String("generate-qa", "", "Run offline Q&A generation for this document path instead of an ingest sweep")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := ragcore.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		err = json.NewDecoder(f).Decode(&cfg)
		f.Close()
		if err != nil {
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
	}
	if *docsDir != "" {
		cfg.DocsDir = *docsDir
	}
	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case "openai":
			cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Chat.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}

	engine, err := ragcore.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	if *genQAFor != "" {
		count, err := engine.GenerateQA(ctx, *genQAFor)
		if err != nil {
			slog.Error("q&a generation failed", "path", *genQAFor, "error", err)
			os.Exit(1)
		}
		slog.Info("q&a generation complete", "path", *genQAFor, "pairs_added", count)
		return
	}

	if err := engine.Ingest(ctx); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ingest sweep complete")
}
