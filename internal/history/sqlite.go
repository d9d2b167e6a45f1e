package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rating_point (
    user_name TEXT NOT NULL,
    end_time INTEGER NOT NULL,
    new_rating INTEGER NOT NULL CHECK (new_rating >= 0),
    place INTEGER NOT NULL DEFAULT 0,
    contest_name TEXT NOT NULL DEFAULT '',
    standings_url TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_name, end_time)
);

CREATE INDEX IF NOT EXISTS idx_rating_point_user ON rating_point(user_name);
`

// SQLiteStore is a Store kept in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetHistory(ctx context.Context, user string) ([]rating.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT end_time, new_rating, place, contest_name, standings_url
		FROM rating_point
		WHERE user_name = ?
		ORDER BY end_time ASC`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", user, err)
	}
	defer rows.Close()

	var points []rating.Point
	for rows.Next() {
		var p rating.Point
		if err := rows.Scan(&p.Timestamp, &p.Rating, &p.Rank, &p.ContestLabel, &p.ReferenceURL); err != nil {
			return nil, fmt.Errorf("failed to scan rating point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", user, err)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", user, ErrUserNotFound)
	}
	return points, nil
}

func (s *SQLiteStore) PutHistory(ctx context.Context, user string, points []rating.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rating_point WHERE user_name = ?`, user); err != nil {
		return fmt.Errorf("failed to clear history for %s: %w", user, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rating_point (user_name, end_time, new_rating, place, contest_name, standings_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_name, end_time) DO UPDATE SET
			new_rating = excluded.new_rating,
			place = excluded.place,
			contest_name = excluded.contest_name,
			standings_url = excluded.standings_url`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, user, p.Timestamp, p.Rating, p.Rank, p.ContestLabel, p.ReferenceURL); err != nil {
			return fmt.Errorf("failed to insert point %d for %s: %w", p.Timestamp, user, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history for %s: %w", user, err)
	}
	return nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_name FROM rating_point ORDER BY user_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
