// internal/daily/store.go
//
// SQLite-backed leaderboard for the Daily Challenge.
//   - daily_scores has UNIQUE(date, user_id): one entry per identity per day.
//   - Ranking is score DESC, time_taken ASC, then earliest submission.

package daily

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultLeaderboardLimit is used when callers pass a non-positive limit.
const DefaultLeaderboardLimit = 20

// Entry is one leaderboard row. Identities are never exposed.
type Entry struct {
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	TimeTaken int    `json:"timeTaken"`
	CreatedAt string `json:"createdAt"`
}

type Store struct {
	db  *sql.DB
	now Clock
}

// NewStore stamps created_at with now, which defaults to time.Now.
func NewStore(db *sql.DB, now Clock) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

// AlreadySubmitted reports whether identity has an entry for date.
func (s *Store) AlreadySubmitted(ctx context.Context, identity, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_scores WHERE user_id=? AND date=?`,
		identity, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// Insert records sub. A second entry for the same (date, identity) returns
// ErrAlreadySubmitted and leaves the first untouched.
func (s *Store) Insert(ctx context.Context, sub Submission) (Entry, error) {
	created := s.now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_scores(date, user_id, name, score, time_taken, created_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(date, user_id) DO NOTHING`,
		sub.Date, sub.Identity, sub.Name, sub.Score, sub.TimeTaken, created,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert daily score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Entry{}, fmt.Errorf("insert daily score: %w", err)
	}
	if n == 0 {
		return Entry{}, ErrAlreadySubmitted
	}
	return Entry{Name: sub.Name, Score: sub.Score, TimeTaken: sub.TimeTaken, CreatedAt: created}, nil
}

// Leaderboard returns the top entries for date.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, score, time_taken, created_at
		 FROM daily_scores
		 WHERE date=?
		 ORDER BY score DESC, time_taken ASC, created_at ASC, id ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Score, &e.TimeTaken, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}
