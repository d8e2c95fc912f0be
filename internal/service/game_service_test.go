package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/repository/postgres"
	"github.com/dom/quiz-engine/internal/service"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gameServiceFixture struct {
	db        *testutil.TestDB
	games     *store.GameRepository
	transport *testutil.FakeTransport
	svc       *service.GameService
}

func newGameServiceFixture(t *testing.T) *gameServiceFixture {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	tr := testutil.NewTestRedis(t)
	repos := postgres.NewRepositories(testDB.DB)

	f := &gameServiceFixture{
		db:        testDB,
		games:     store.NewGameRepository(tr.Client, time.Hour),
		transport: testutil.NewFakeTransport(),
	}
	fanout := broadcast.NewFanout(f.transport, store.NewSessionStore(tr.Client, time.Hour))
	f.svc = service.NewGameService(repos.Package, repos.GameResult, f.games, fanout)
	return f
}

func TestGameService_CreateGame(t *testing.T) {
	f := newGameServiceFixture(t)
	ctx := context.Background()

	record := testutil.NewPackageRecordBuilder().Build(t, f.db.DB)
	empty := testutil.NewPackageRecordBuilder().
		WithPackage(domain.Package{ID: uuid.NewString(), Title: "Empty"}).
		Build(t, f.db.DB)

	tests := []struct {
		name     string
		input    service.CreateGameInput
		wantErr  error
		announce bool
	}{
		{
			name:     "public game",
			input:    service.CreateGameInput{PackageID: record.ID, CreatedBy: 7},
			announce: true,
		},
		{
			name:  "private game",
			input: service.CreateGameInput{PackageID: record.ID, CreatedBy: 7, IsPrivate: true, MaxPlayers: 2},
		},
		{
			name:    "unknown package",
			input:   service.CreateGameInput{PackageID: uuid.New(), CreatedBy: 7},
			wantErr: service.ErrPackageNotFound,
		},
		{
			name:    "package without rounds",
			input:   service.CreateGameInput{PackageID: empty.ID, CreatedBy: 7},
			wantErr: service.ErrEmptyPackage,
		},
		{
			name:    "negative seats",
			input:   service.CreateGameInput{PackageID: record.ID, MaxPlayers: -1},
			wantErr: service.ErrInvalidGame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.transport.Reset()

			game, err := f.svc.CreateGame(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.transport.Emissions())
				return
			}
			require.NoError(t, err)

			stored, err := f.games.Get(ctx, game.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.PhaseLobby, domain.GetGamePhase(stored))
			assert.Equal(t, 7, stored.CreatedBy)
			assert.Equal(t, record.ID.String(), stored.Package.ID)
			assert.Len(t, stored.Package.Rounds, 2)

			created := f.transport.Named(broadcast.EventGameCreated)
			if !tt.announce {
				assert.Empty(t, created)
				return
			}
			require.Len(t, created, 1)
			assert.Equal(t, "all", created[0].Kind)
			assert.Equal(t, game.ID, created[0].Payload.(broadcast.GameCreatedPayload).Game.ID)
		})
	}
}

func TestGameService_GetGame(t *testing.T) {
	f := newGameServiceFixture(t)
	ctx := context.Background()

	game := testutil.NewGameBuilder().Build()
	require.NoError(t, f.games.Save(ctx, game))

	got, err := f.svc.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.Title, got.Title)

	_, err = f.svc.GetGame(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrGameNotFound)
}

func TestGameService_ArchiveAndHistory(t *testing.T) {
	f := newGameServiceFixture(t)
	ctx := context.Background()

	game := testutil.NewGameBuilder().WithShowman(1).WithPlayer(2, 0, 300).WithPlayer(3, 1, 500).Started().Finished().Build()
	require.NoError(t, f.svc.Archive(ctx, game))
	// A second archive of the same game is absorbed.
	require.NoError(t, f.svc.Archive(ctx, game))

	history, err := f.svc.History(ctx, 2, 0, -5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, game.ID, history[0].GameID)
	require.NotNil(t, history[0].WinnerID)
	assert.Equal(t, 3, *history[0].WinnerID)
}
