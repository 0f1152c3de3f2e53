package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/lexideck/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Get returns the snapshot payload stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return []byte(payload), true, nil
}

// Put overwrites the snapshot stored under key.
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO snapshots (key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot stored under key.
func (db *DB) Delete(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// InsertReviewLog appends a graded review to the history.
func (db *DB) InsertReviewLog(ctx context.Context, log domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_logs (card_id, lesson_id, word, grade, interval_hours, reviewed_at, next_review_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		log.CardID,
		log.LessonID,
		log.Word,
		string(log.Grade),
		log.IntervalHours,
		log.ReviewedAt.UTC(),
		log.NextReviewAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert review log for %s: %w", log.Word, err)
	}
	return nil
}

// ReviewLogs returns the review history of a lesson, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, lessonID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, lesson_id, word, grade, interval_hours, reviewed_at, next_review_at
		FROM review_logs WHERE lesson_id = ?
		ORDER BY reviewed_at, id
	`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for lesson %s: %w", lessonID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		var grade string
		if err := rows.Scan(
			&l.CardID,
			&l.LessonID,
			&l.Word,
			&grade,
			&l.IntervalHours,
			&l.ReviewedAt,
			&l.NextReviewAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review log row for lesson %s: %w", lessonID, err)
		}
		l.Grade = domain.Grade(grade)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review logs for lesson %s: %w", lessonID, err)
	}
	return logs, nil
}
