// Package storage persists words, per-user card state, and content
// sources in SQLite. It is the durable implementation of the session
// package's Store interface; GuestStore is the in-memory one.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sidneypayan/linguami-srs/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrCardNotFound is returned when a card write matches no row, which
// happens when reconciliation deleted the word while a session still
// held its card.
var ErrCardNotFound = errors.New("storage: card not found")

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InsertWord inserts a new word into the content table.
func (db *DB) InsertWord(ctx context.Context, w domain.Word, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO words (hash, language, deck, front, back, example, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.Hash, w.Language, w.Deck, w.Front, w.Back, w.Example, sourceID)
	if err != nil {
		return fmt.Errorf("failed to insert word %s: %w", w.Hash, err)
	}
	return nil
}

// FindWordByHash retrieves a word by its content hash. Returns nil when
// the word does not exist.
func (db *DB) FindWordByHash(ctx context.Context, hash string) (*domain.Word, error) {
	var w domain.Word
	row := db.conn.QueryRowContext(ctx, `
		SELECT hash, language, deck, front, back, example
		FROM words WHERE hash = ?
	`, hash)
	err := row.Scan(&w.Hash, &w.Language, &w.Deck, &w.Front, &w.Back, &w.Example)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find word by hash %s: %w", hash, err)
	}
	return &w, nil
}

// GetWordsByDeck retrieves all words of one deck in one language.
func (db *DB) GetWordsByDeck(ctx context.Context, language, deck string) ([]domain.Word, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT hash, language, deck, front, back, example
		FROM words WHERE language = ? AND deck = ?
		ORDER BY hash
	`, language, deck)
	if err != nil {
		return nil, fmt.Errorf("failed to get words for deck %s/%s: %w", language, deck, err)
	}
	defer rows.Close()

	var words []domain.Word
	for rows.Next() {
		var w domain.Word
		if err := rows.Scan(&w.Hash, &w.Language, &w.Deck, &w.Front, &w.Back, &w.Example); err != nil {
			return nil, fmt.Errorf("failed to scan word row: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// GetWordsBySourceID retrieves all words owned by a content source.
func (db *DB) GetWordsBySourceID(ctx context.Context, sourceID int64) ([]domain.Word, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT hash, language, deck, front, back, example
		FROM words WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get words for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var words []domain.Word
	for rows.Next() {
		var w domain.Word
		if err := rows.Scan(&w.Hash, &w.Language, &w.Deck, &w.Front, &w.Back, &w.Example); err != nil {
			return nil, fmt.Errorf("failed to scan word row for source ID %d: %w", sourceID, err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// DeleteWordByHash removes a word and every user's card for it in one
// transaction.
func (db *DB) DeleteWordByHash(ctx context.Context, hash string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to delete word %s: %w", hash, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE card_id = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete cards for word %s: %w", hash, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM words WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete word %s: %w", hash, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to delete word %s: %w", hash, err)
	}
	return nil
}

// EnsureUserCards creates a fresh card row for every word the user has
// not been exposed to yet. New cards start in the new state, due now.
func (db *DB) EnsureUserCards(ctx context.Context, userID string, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO cards (user_id, card_id, state, ease, due_at)
		SELECT ?, hash, 'new', ?, ?
		FROM words
	`, userID, domain.DefaultEase, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to ensure cards for user %s: %w", userID, err)
	}
	return nil
}

// LoadDueCards returns the user's unsuspended cards due at or before
// now, ordered by due date then card ID. The driver encodes timestamps
// as text, so every stored or compared time is normalized to UTC first.
func (db *DB) LoadDueCards(ctx context.Context, userID string, now time.Time) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.card_id, w.front, w.back, w.example,
		       c.state, c.step, c.interval_secs, c.ease, c.repetitions, c.lapses,
		       c.due_at, c.last_review
		FROM cards c
		JOIN words w ON w.hash = c.card_id
		WHERE c.user_id = ? AND c.due_at <= ? AND c.state != 'suspended'
		ORDER BY c.due_at, c.card_id
	`, userID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load due cards for user %s: %w", userID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// FindCard retrieves one card's state. Returns nil when the user has
// no card for the given ID.
func (db *DB) FindCard(ctx context.Context, userID, cardID string) (*domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT c.card_id, w.front, w.back, w.example,
		       c.state, c.step, c.interval_secs, c.ease, c.repetitions, c.lapses,
		       c.due_at, c.last_review
		FROM cards c
		JOIN words w ON w.hash = c.card_id
		WHERE c.user_id = ? AND c.card_id = ?
	`, userID, cardID)
	c, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card %s for user %s: %w", cardID, userID, err)
	}
	return &c, nil
}

// SaveCardState updates one card row with the scheduler's result. The
// single UPDATE keeps the write atomic per card.
func (db *DB) SaveCardState(ctx context.Context, userID string, card domain.Card) error {
	stateText, err := card.State.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to save card %s: %w", card.ID, err)
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET state = ?, step = ?, interval_secs = ?, ease = ?, repetitions = ?, lapses = ?,
		    due_at = ?, last_review = ?
		WHERE user_id = ? AND card_id = ?
	`,
		string(stateText),
		card.Step,
		int64(card.Interval.Seconds()),
		card.Ease,
		card.Repetitions,
		card.Lapses,
		card.Due.UTC(),
		sql.NullTime{Time: card.LastReview.UTC(), Valid: !card.LastReview.IsZero()},
		userID,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card state for %s: %w", card.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update card state for %s: %w", card.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s for user %s", ErrCardNotFound, card.ID, userID)
	}
	return nil
}

// SetSuspended suspends or resumes a card. Resuming puts the card back
// into the review state with its interval intact.
func (db *DB) SetSuspended(ctx context.Context, userID, cardID string, suspended bool) error {
	var err error
	if suspended {
		_, err = db.conn.ExecContext(ctx, `
			UPDATE cards SET state = 'suspended'
			WHERE user_id = ? AND card_id = ?
		`, userID, cardID)
	} else {
		_, err = db.conn.ExecContext(ctx, `
			UPDATE cards
			SET state = CASE WHEN repetitions > 0 OR lapses > 0 THEN 'review' ELSE 'new' END
			WHERE user_id = ? AND card_id = ? AND state = 'suspended'
		`, userID, cardID)
	}
	if err != nil {
		return fmt.Errorf("failed to set suspended=%t for card %s: %w", suspended, cardID, err)
	}
	return nil
}

// AppendReview records one graded review in the audit trail.
func (db *DB) AppendReview(ctx context.Context, userID string, ev domain.ReviewEvent) error {
	buttonText, err := ev.Button.MarshalText()
	if err != nil {
		return fmt.Errorf("failed to log review for card %s: %w", ev.CardID, err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO review_log (user_id, card_id, button, reviewed_at)
		VALUES (?, ?, ?, ?)
	`, userID, ev.CardID, string(buttonText), ev.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to log review for card %s: %w", ev.CardID, err)
	}
	return nil
}

// Source represents a card source, either a local path or a git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string // "local" or "git"
	LastScanned sql.NullTime
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type) VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path. Returns nil when the
// source does not exist.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned FROM sources WHERE path = ?
	`, path)
	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source; its words and cards stay until the
// next reconciliation deletes them as orphans.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var (
		c            domain.Card
		stateText    string
		intervalSecs int64
		lastReview   sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Front, &c.Back, &c.Example,
		&stateText, &c.Step, &intervalSecs, &c.Ease, &c.Repetitions, &c.Lapses,
		&c.Due, &lastReview,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Card{}, err
		}
		return domain.Card{}, fmt.Errorf("failed to scan card row: %w", err)
	}
	if err := c.State.UnmarshalText([]byte(stateText)); err != nil {
		return domain.Card{}, fmt.Errorf("failed to scan card row: %w", err)
	}
	c.Interval = time.Duration(intervalSecs) * time.Second
	if lastReview.Valid {
		c.LastReview = lastReview.Time
	}
	return c, nil
}
