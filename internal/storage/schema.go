package storage

const schema = `
-- The 'snapshots' table is a key-value store; each deck, rating and preference is one JSON payload.
CREATE TABLE IF NOT EXISTS snapshots (
    key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);

-- The 'review_logs' table keeps one row per graded review.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    lesson_id TEXT NOT NULL,
    word TEXT NOT NULL,
    grade TEXT NOT NULL,
    interval_hours REAL NOT NULL,
    reviewed_at DATETIME NOT NULL,
    next_review_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_logs_lesson ON review_logs(lesson_id, reviewed_at);
`
