package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no result exists for a game id.
var ErrNotFound = errors.New("result not found")

// ResultRecord is the stored outcome of one finished or aborted game.
type ResultRecord struct {
	GameID     string
	Player0    string
	Player1    string
	Winner     int // -1 for aborted games
	Turns      int
	Actions    int
	Checksum   string
	ReplayPath string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Aborted reports whether the game ended without a winner.
func (r ResultRecord) Aborted() bool { return r.Winner < 0 }

// querier is the part of pgxpool.Pool the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResultRepository stores game results in Postgres.
type ResultRepository struct {
	db querier
}

// NewResultRepository creates a repository on top of db.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db.pool}
}

const createResultsTable = `
CREATE TABLE IF NOT EXISTS duel_results (
	game_id     TEXT PRIMARY KEY,
	player_0    TEXT NOT NULL,
	player_1    TEXT NOT NULL,
	winner      SMALLINT NOT NULL,
	turns       INTEGER NOT NULL,
	actions     INTEGER NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	replay_path TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the results table if it does not exist.
func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createResultsTable); err != nil {
		return fmt.Errorf("failed to create duel_results: %w", err)
	}
	return nil
}

// Save inserts a result. Saving the same game twice keeps the first row.
func (r *ResultRepository) Save(ctx context.Context, rec ResultRecord) error {
	if rec.GameID == "" {
		return errors.New("result has no game id")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO duel_results
			(game_id, player_0, player_1, winner, turns, actions, checksum, replay_path, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO NOTHING`,
		rec.GameID, rec.Player0, rec.Player1, rec.Winner, rec.Turns, rec.Actions,
		rec.Checksum, rec.ReplayPath, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", rec.GameID, err)
	}
	return nil
}

const selectResult = `
	SELECT game_id, player_0, player_1, winner, turns, actions, checksum, replay_path, started_at, finished_at
	FROM duel_results`

// Get loads the result of one game.
func (r *ResultRepository) Get(ctx context.Context, gameID string) (*ResultRecord, error) {
	var rec ResultRecord
	err := scanResult(r.db.QueryRow(ctx, selectResult+" WHERE game_id = $1", gameID), &rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result %s: %w", gameID, err)
	}
	return &rec, nil
}

// Recent returns the most recently finished games, newest first.
func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, selectResult+" ORDER BY finished_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]ResultRecord, 0, limit)
	for rows.Next() {
		var rec ResultRecord
		if err := scanResult(rows, &rec); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return results, nil
}

// Wins counts the games a player name has won.
func (r *ResultRepository) Wins(ctx context.Context, name string) (int64, error) {
	var wins int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM duel_results
		WHERE (winner = 0 AND player_0 = $1) OR (winner = 1 AND player_1 = $1)`, name).Scan(&wins)
	if err != nil {
		return 0, fmt.Errorf("failed to count wins for %s: %w", name, err)
	}
	return wins, nil
}

func scanResult(row pgx.Row, rec *ResultRecord) error {
	return row.Scan(
		&rec.GameID, &rec.Player0, &rec.Player1, &rec.Winner, &rec.Turns, &rec.Actions,
		&rec.Checksum, &rec.ReplayPath, &rec.StartedAt, &rec.FinishedAt,
	)
}
