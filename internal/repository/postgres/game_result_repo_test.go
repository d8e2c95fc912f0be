package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/repository"
	"github.com/dom/quiz-engine/internal/repository/postgres"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedGame(t *testing.T, finishedAt time.Time, players ...int) *domain.GameResult {
	t.Helper()

	b := testutil.NewGameBuilder().WithShowman(1)
	for i, id := range players {
		b.WithPlayer(id, i, (i+1)*100)
	}
	game := b.Started().Build()
	game.FinishedAt = &finishedAt

	result, err := domain.NewGameResult(game)
	require.NoError(t, err)
	return result
}

func TestGameResultRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewGameResultRepository(testDB.DB)
	ctx := context.Background()

	result := finishedGame(t, time.Now().UTC(), 2, 3)
	require.NoError(t, repo.Create(ctx, result))

	got, err := repo.GetByGameID(ctx, result.GameID)
	require.NoError(t, err)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, 3, *got.WinnerID)

	scores, err := got.ScoreMap()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 100, 3: 200}, scores)

	_, err = repo.GetByGameID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGameResultRepository_CreateTwiceKeepsFirst(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewGameResultRepository(testDB.DB)
	ctx := context.Background()

	first := finishedGame(t, time.Now().UTC(), 2, 3)
	require.NoError(t, repo.Create(ctx, first))

	again := *first
	again.ID = uuid.New()
	again.Title = "changed"
	require.NoError(t, repo.Create(ctx, &again))

	got, err := repo.GetByGameID(ctx, first.GameID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Title, got.Title)
}

func TestGameResultRepository_ListByUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewGameResultRepository(testDB.DB)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	older := finishedGame(t, base.Add(-time.Hour), 2, 3)
	newer := finishedGame(t, base, 2, 4)
	other := finishedGame(t, base, 5, 6)
	for _, r := range []*domain.GameResult{older, newer, other} {
		require.NoError(t, repo.Create(ctx, r))
	}

	tests := []struct {
		name   string
		userID int
		limit  int
		offset int
		want   []string
	}{
		{"all games newest first", 2, 10, 0, []string{newer.GameID, older.GameID}},
		{"limit", 2, 1, 0, []string{newer.GameID}},
		{"offset", 2, 10, 1, []string{older.GameID}},
		{"single game", 3, 10, 0, []string{older.GameID}},
		{"showman is not a player", 1, 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.ListByUser(ctx, tt.userID, tt.limit, tt.offset)
			require.NoError(t, err)

			var ids []string
			for _, r := range results {
				ids = append(ids, r.GameID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
