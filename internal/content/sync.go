package content

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sidneypayan/linguami-srs/internal/storage"
)

// IsGitURL reports whether a source path refers to a git repository
// rather than a local directory.
func IsGitURL(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// Reconcile iterates over all configured sources and brings the words
// table in line with their deck files: new words inserted, orphaned
// words (and their cards) deleted. Git sources are cloned or pulled
// into reposDir first. The cache is invalidated after any change.
func Reconcile(ctx context.Context, db *storage.DB, cache *Cache, reposDir string) error {
	slog.Info("Starting content reconciliation")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No content sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		root := source.Path
		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := SyncGit(source.Path, localRepoPath); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			root = localRepoPath
		}

		reconcileSource(ctx, db, source, root)
	}

	if cache != nil {
		cache.InvalidateAll()
	}
	slog.Info("Content reconciliation complete")
	return nil
}

// reconcileSource walks one source's deck files. Deck files live at
// <language>/<deck>.md inside the source root; files outside a language
// directory fall into the "misc" language.
func reconcileSource(ctx context.Context, db *storage.DB, source storage.Source, root string) {
	var parsed int
	var errs []error
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		words, parseErr := ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}

		language, deck := deckLocation(root, path)
		for _, w := range words {
			w.Language = language
			w.Deck = deck
			w.Hash = Hash(w)
			parsed++
			found[w.Hash] = true

			existing, findErr := db.FindWordByHash(ctx, w.Hash)
			if findErr != nil {
				errs = append(errs, fmt.Errorf("db check for %s: %w", w.Hash, findErr))
				continue
			}
			if existing == nil {
				slog.Info("New word found, inserting", "hash", w.Hash, "deck", deck)
				if insertErr := db.InsertWord(ctx, w, source.ID); insertErr != nil {
					errs = append(errs, fmt.Errorf("db insert for %s: %w", w.Hash, insertErr))
				}
			}
		}
		return nil
	})

	if walkErr != nil {
		slog.Error("Error walking source directory", "path", root, "error", walkErr)
		return
	}

	dbWords, err := db.GetWordsBySourceID(ctx, source.ID)
	if err != nil {
		slog.Error("Error getting words for source", "source_id", source.ID, "error", err)
		return
	}

	var orphaned int
	for _, w := range dbWords {
		if !found[w.Hash] {
			slog.Info("Orphaned word, deleting", "hash", w.Hash)
			orphaned++
			if err := db.DeleteWordByHash(ctx, w.Hash); err != nil {
				slog.Warn("Failed to delete orphaned word", "hash", w.Hash, "error", err)
			}
		}
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_words", parsed,
		"orphaned_deleted", orphaned,
		"errors", len(errs),
	)
}

// deckLocation derives (language, deck) from a deck file's path
// relative to its source root.
func deckLocation(root, path string) (string, string) {
	deck := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "misc", deck
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "misc", deck
	}
	return parts[0], deck
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
