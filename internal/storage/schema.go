package storage

const schema = `
-- Shared content: one row per learnable word, keyed by its content hash.
CREATE TABLE IF NOT EXISTS words (
    hash TEXT PRIMARY KEY,
    language TEXT NOT NULL,
    deck TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    example TEXT NOT NULL DEFAULT '',
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Per-user scheduling state, one row per (user, word).
CREATE TABLE IF NOT EXISTS cards (
    user_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    state TEXT NOT NULL DEFAULT 'new',
    step INTEGER NOT NULL DEFAULT 0,
    interval_secs INTEGER NOT NULL DEFAULT 0,
    ease REAL NOT NULL DEFAULT 2.5,
    repetitions INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    due_at DATETIME NOT NULL,
    last_review DATETIME,

    PRIMARY KEY (user_id, card_id),
    FOREIGN KEY(card_id) REFERENCES words(hash)
);

CREATE INDEX IF NOT EXISTS idx_cards_user_due ON cards(user_id, due_at);

-- Where word content comes from: a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);

-- Audit trail of graded reviews.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    button TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL
);
`
