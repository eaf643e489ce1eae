// Package web exposes the study flow over a JSON HTTP API: session
// creation, next-card retrieval, review submission, suspend/resume,
// deck browsing, and content sync.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/sidneypayan/linguami-srs/internal/content"
	"github.com/sidneypayan/linguami-srs/internal/domain"
	"github.com/sidneypayan/linguami-srs/internal/scheduler"
	"github.com/sidneypayan/linguami-srs/internal/session"
	"github.com/sidneypayan/linguami-srs/internal/storage"
)

// Store is what the server needs from a persistence backend. Both the
// SQLite store and the in-memory guest store satisfy it; which one a
// request uses depends on whether the caller is authenticated.
type Store interface {
	session.Store
	EnsureUserCards(ctx context.Context, userID string, now time.Time) error
	AppendReview(ctx context.Context, userID string, ev domain.ReviewEvent) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	users    Store
	guests   Store
	db       *storage.DB // nil when running without durable storage
	cache    *content.Cache
	params   *scheduler.Params
	defaults session.Config
	reposDir string

	router   *http.ServeMux
	sessions *registry
}

// Options configures a new Server.
type Options struct {
	Users          Store
	Guests         Store
	DB             *storage.DB
	Cache          *content.Cache
	Params         *scheduler.Params
	DefaultSession session.Config
	ReposDir       string
	AllowedOrigins []string
}

// NewServer creates and configures a new server.
func NewServer(opts Options) http.Handler {
	params := opts.Params
	if params == nil {
		params = scheduler.DefaultParams()
	}
	s := &Server{
		users:    opts.Users,
		guests:   opts.Guests,
		db:       opts.DB,
		cache:    opts.Cache,
		params:   params,
		defaults: opts.DefaultSession,
		reposDir: opts.ReposDir,
		router:   http.NewServeMux(),
		sessions: newRegistry(),
	}
	s.routes()

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID", "X-Guest-ID"},
		ExposedHeaders:   []string{"X-Guest-ID"},
		AllowCredentials: true,
	})
	return c.Handler(s)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/options", s.handleOptions())
	s.router.HandleFunc("/session", s.handleSession())
	s.router.HandleFunc("/session/next", s.handleNext())
	s.router.HandleFunc("/session/review", s.handleReview())
	s.router.HandleFunc("/cards/", s.handleCardAction())
	s.router.HandleFunc("/decks/", s.handleGetDeck())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

// identify resolves the request to a store and user ID. Authenticated
// callers carry X-User-ID and use the durable store; everyone else is
// a guest on the in-memory store, minted an ID on first contact.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (Store, string, error) {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return s.users, userID, nil
	}
	guestID := r.Header.Get("X-Guest-ID")
	if guestID == "" {
		var err error
		guestID, err = storage.NewGuestID()
		if err != nil {
			return nil, "", err
		}
	}
	w.Header().Set("X-Guest-ID", guestID)
	return s.guests, guestID, nil
}

// handleOptions reports the configuration surface: modes, the allowed
// limit sets, and the server's default session config.
func (s *Server) handleOptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"modes":       []session.Mode{session.ModeCards, session.ModeTime},
			"card_limits": session.AllowedCardLimits,
			"time_limits": session.AllowedTimeLimits,
			"default":     s.defaults,
		})
	}
}

// handleSession creates or abandons the caller's study session.
func (s *Server) handleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleCreateSession(w, r)
		case http.MethodDelete:
			s.handleAbandonSession(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	store, userID, err := s.identify(w, r)
	if err != nil {
		slog.Error("Error identifying caller", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cfg := s.defaults
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid session config", http.StatusBadRequest)
			return
		}
	}

	now := time.Now()
	ctx := r.Context()
	if err := store.EnsureUserCards(ctx, userID, now); err != nil {
		slog.Error("Error ensuring cards", "user", userID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	candidates, err := store.LoadDueCards(ctx, userID, now)
	if err != nil {
		slog.Error("Error loading due cards", "user", userID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, err := session.New(store, userID, candidates, cfg, session.WithParams(s.params))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.sessions.put(userID, sess)

	resp := map[string]any{
		"config":    sess.Config(),
		"remaining": sess.Remaining(),
	}
	if card, ok := sess.Current(); ok {
		resp["card"] = card
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	_, userID, err := s.identify(w, r)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	// Committed reviews stand; the in-memory queue simply goes away.
	s.sessions.delete(userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleNext serves the current card of the caller's session.
func (s *Server) handleNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_, userID, err := s.identify(w, r)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		sess, ok := s.sessions.get(userID)
		if !ok {
			http.Error(w, "No active session", http.StatusNotFound)
			return
		}
		card, ok := sess.Current()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"complete": true, "reviewed": sess.Reviewed()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"card": card, "remaining": sess.Remaining()})
	}
}

type reviewRequest struct {
	CardID string            `json:"card_id"`
	Button domain.ButtonType `json:"button"`
	At     time.Time         `json:"at"`
}

// handleReview grades the current card.
func (s *Server) handleReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		store, userID, err := s.identify(w, r)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		sess, ok := s.sessions.get(userID)
		if !ok {
			http.Error(w, "No active session", http.StatusNotFound)
			return
		}

		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid review", http.StatusBadRequest)
			return
		}
		if req.At.IsZero() {
			req.At = time.Now()
		}

		res, err := sess.SubmitReview(r.Context(), req.CardID, req.Button, req.At)
		if err != nil {
			s.writeReviewError(w, userID, err)
			return
		}

		ev := domain.ReviewEvent{CardID: req.CardID, Button: req.Button, At: req.At}
		if err := store.AppendReview(r.Context(), userID, ev); err != nil {
			slog.Warn("Failed to log review", "user", userID, "card", req.CardID, "error", err)
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) writeReviewError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, scheduler.ErrInvalidButton),
		errors.Is(err, scheduler.ErrInvalidState),
		errors.Is(err, scheduler.ErrCardSuspended):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrCardNotCurrent):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrSessionComplete):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		slog.Error("Error submitting review", "user", userID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleCardAction handles POST /cards/{id}/suspend and /cards/{id}/resume.
func (s *Server) handleCardAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/cards/")
		cardID, action, ok := strings.Cut(rest, "/")
		if !ok || cardID == "" {
			http.Error(w, "Invalid card path", http.StatusBadRequest)
			return
		}

		store, userID, err := s.identify(w, r)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		switch action {
		case "suspend":
			if sess, ok := s.sessions.get(userID); ok {
				err = sess.SuspendCard(r.Context(), cardID)
			} else {
				err = store.SetSuspended(r.Context(), userID, cardID, true)
			}
		case "resume":
			err = store.SetSuspended(r.Context(), userID, cardID, false)
		default:
			http.Error(w, "Invalid card action", http.StatusBadRequest)
			return
		}
		if err != nil {
			slog.Error("Error changing card suspension", "user", userID, "card", cardID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetDeck serves the contents of /decks/{language}/{deck}.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.cache == nil {
			http.Error(w, "Deck browsing unavailable", http.StatusNotFound)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/decks/")
		language, deck, ok := strings.Cut(rest, "/")
		if !ok || language == "" || deck == "" {
			http.Error(w, "Invalid deck path", http.StatusBadRequest)
			return
		}
		words, err := s.cache.Get(r.Context(), language, deck)
		if err != nil {
			slog.Error("Error loading deck", "language", language, "deck", deck, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"language": language,
			"deck":     deck,
			"words":    words,
		})
	}
}

// handlePostSync triggers a manual content reconciliation.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.db == nil {
			http.Error(w, "Sync unavailable", http.StatusNotFound)
			return
		}
		if err := content.Reconcile(r.Context(), s.db, s.cache, s.reposDir); err != nil {
			slog.Error("Error reconciling content", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}
