package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sidneypayan/linguami-srs/internal/config"
	"github.com/sidneypayan/linguami-srs/internal/content"
	"github.com/sidneypayan/linguami-srs/internal/domain"
	"github.com/sidneypayan/linguami-srs/internal/storage"
	"github.com/sidneypayan/linguami-srs/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("linguami-srs", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to the YAML config file")
	flags.String("server.addr", ":8080", "HTTP listen address")
	flags.String("database.path", "linguami.db", "Path to the SQLite database file")
	addSource := flags.String("add-source", "", "Register a deck source (path or git URL) and exit")
	syncOnly := flags.Bool("sync", false, "Reconcile content sources and exit")
	flags.Parse(os.Args[1:])

	// A local .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Env == "local" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Database opened", "path", cfg.Database.Path)

	ctx := context.Background()

	if *addSource != "" {
		registerSource(ctx, db, *addSource)
		return
	}
	for _, src := range cfg.Content.Sources {
		registerSource(ctx, db, src)
	}

	cache := content.NewCache(func(ctx context.Context, language, deck string) ([]domain.Word, error) {
		return db.GetWordsByDeck(ctx, language, deck)
	})

	if err := content.Reconcile(ctx, db, cache, cfg.Content.ReposDir); err != nil {
		slog.Error("Failed to reconcile content", "error", err)
		os.Exit(1)
	}
	if *syncOnly {
		return
	}

	params, err := cfg.SchedulerParams()
	if err != nil {
		slog.Error("Invalid scheduler tuning", "error", err)
		os.Exit(1)
	}

	// Guests study the full word set without durable progress.
	guestWords, err := allWords(ctx, db)
	if err != nil {
		slog.Error("Failed to load words for guest store", "error", err)
		os.Exit(1)
	}

	handler := web.NewServer(web.Options{
		Users:          db,
		Guests:         storage.NewGuestStore(guestWords),
		DB:             db,
		Cache:          cache,
		Params:         params,
		DefaultSession: cfg.Session.Default,
		ReposDir:       cfg.Content.ReposDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	slog.Info("Listening", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, handler); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// registerSource inserts a source if it is not known yet.
func registerSource(ctx context.Context, db *storage.DB, path string) {
	existing, err := db.FindSourceByPath(ctx, path)
	if err != nil {
		slog.Error("Failed to look up source", "path", path, "error", err)
		os.Exit(1)
	}
	if existing != nil {
		return
	}
	sourceType := "local"
	if content.IsGitURL(path) {
		sourceType = "git"
	}
	if _, err := db.InsertSource(ctx, path, sourceType); err != nil {
		slog.Error("Failed to register source", "path", path, "error", err)
		os.Exit(1)
	}
	slog.Info("Registered source", "path", path, "type", sourceType)
}

// allWords collects every word across sources for the guest store.
func allWords(ctx context.Context, db *storage.DB) ([]domain.Word, error) {
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return nil, err
	}
	var words []domain.Word
	for _, src := range sources {
		ws, err := db.GetWordsBySourceID(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		words = append(words, ws...)
	}
	return words, nil
}
