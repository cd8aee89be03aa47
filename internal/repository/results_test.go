package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/landsduel/duel-server-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type execCall struct {
	sql  string
	args []any
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *int64:
			*d = v.(int64)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

type fakeQuerier struct {
	execs []execCall
	row   fakeRow
	err   error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported by fake")
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func sampleRecord() ResultRecord {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return ResultRecord{
		GameID:     "g1",
		Player0:    "Alice",
		Player1:    "Bob",
		Winner:     1,
		Turns:      14,
		Actions:    31,
		Checksum:   "abc",
		StartedAt:  start,
		FinishedAt: start.Add(9 * time.Minute),
	}
}

func TestSaveResult(t *testing.T) {
	q := &fakeQuerier{}
	repo := &ResultRepository{db: q}

	require.NoError(t, repo.Save(context.Background(), sampleRecord()))
	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0].sql, "ON CONFLICT (game_id) DO NOTHING")
	assert.Equal(t, "g1", q.execs[0].args[0])
	assert.Equal(t, 1, q.execs[0].args[3])

	assert.Error(t, repo.Save(context.Background(), ResultRecord{}))

	q.err = errors.New("connection reset")
	err := repo.Save(context.Background(), sampleRecord())
	assert.ErrorContains(t, err, "connection reset")
}

func TestGetResult(t *testing.T) {
	rec := sampleRecord()
	q := &fakeQuerier{row: fakeRow{values: []any{
		rec.GameID, rec.Player0, rec.Player1, rec.Winner, rec.Turns, rec.Actions,
		rec.Checksum, rec.ReplayPath, rec.StartedAt, rec.FinishedAt,
	}}}
	repo := &ResultRepository{db: q}

	got, err := repo.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.False(t, got.Aborted())

	q.row = fakeRow{err: pgx.ErrNoRows}
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	repo := &ResultRepository{db: q}
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.Len(t, q.execs, 1)
	assert.Contains(t, q.execs[0].sql, "CREATE TABLE IF NOT EXISTS duel_results")
}

// TestResultRepositoryPostgres runs against a real database when LANDSDUEL_TEST_DATABASE_URL is set.
func TestResultRepositoryPostgres(t *testing.T) {
	url := os.Getenv("LANDSDUEL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LANDSDUEL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer db.Close()

	repo := NewResultRepository(db)
	require.NoError(t, repo.EnsureSchema(ctx))

	rec := sampleRecord()
	rec.GameID = uuid.NewString()
	rec.Player1 = "Bob-" + rec.GameID
	require.NoError(t, repo.Save(ctx, rec))
	require.NoError(t, repo.Save(ctx, rec), "saving twice is a no-op")

	got, err := repo.Get(ctx, rec.GameID)
	require.NoError(t, err)
	assert.Equal(t, rec.Player1, got.Player1)
	assert.True(t, rec.FinishedAt.Equal(got.FinishedAt))

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)

	wins, err := repo.Wins(ctx, rec.Player1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), wins)
}

func TestNewDBRequiresURL(t *testing.T) {
	_, err := NewDB(context.Background(), config.DatabaseConfig{}, nil)
	assert.Error(t, err)
}
