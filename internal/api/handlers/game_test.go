package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/api/handlers"
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGameHandler_Create(t *testing.T) {
	ts := testutil.NewTestServer(t)
	token := ts.Token(t, 1)
	record := testutil.NewPackageRecordBuilder().Build(t, ts.DB.DB)

	tests := []struct {
		name           string
		token          string
		request        map[string]interface{}
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name:  "public game with defaults",
			token: token,
			request: map[string]interface{}{
				"packageId": record.ID.String(),
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result handlers.CreateGameResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.NotEmpty(t, result.Game.ID)
				assert.Equal(t, record.Title, result.Game.Title)
				assert.Equal(t, 6, result.Game.MaxPlayers)
				assert.Equal(t, domain.PhaseLobby, result.Game.Phase)
				assert.Equal(t, "/api/v1/ws", result.WebsocketURL)
			},
		},
		{
			name:  "private game with title",
			token: token,
			request: map[string]interface{}{
				"packageId":  record.ID.String(),
				"title":      "Friday quiz",
				"maxPlayers": 3,
				"isPrivate":  true,
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result handlers.CreateGameResponse
				testutil.AssertJSONResponse(t, resp, &result)
				assert.Equal(t, "Friday quiz", result.Game.Title)
				assert.True(t, result.Game.IsPrivate)
				assert.Equal(t, 3, result.Game.MaxPlayers)
			},
		},
		{
			name:           "malformed package id",
			token:          token,
			request:        map[string]interface{}{"packageId": "nope"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown package",
			token:          token,
			request:        map[string]interface{}{"packageId": uuid.NewString()},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "too many players",
			token:          token,
			request:        map[string]interface{}{"packageId": record.ID.String(), "maxPlayers": 9},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing token",
			request:        map[string]interface{}{"packageId": record.ID.String()},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "foreign token",
			token:          testutil.GenerateToken(t, "another-secret", 1),
			request:        map[string]interface{}{"packageId": record.ID.String()},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/games"), tt.request, tt.token)
			resp := do(t, req)

			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestGameHandler_GetAndList(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ctx := context.Background()

	public := testutil.NewGameBuilder().WithShowman(1).WithPlayer(2, 0, 0).Build()
	private := testutil.NewGameBuilder().Private().Build()
	require.NoError(t, ts.Games.Save(ctx, public))
	require.NoError(t, ts.Games.Save(ctx, private))

	t.Run("member view", func(t *testing.T) {
		resp := do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/games/"+public.ID), nil, ts.Token(t, 1)))
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var view broadcast.GameView
		testutil.AssertJSONResponse(t, resp, &view)
		assert.Equal(t, public.ID, view.ID)
	})

	t.Run("unknown game", func(t *testing.T) {
		resp := do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/games/missing"), nil, ts.Token(t, 1)))
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "Game not found")
	})

	t.Run("list shows public games only", func(t *testing.T) {
		resp := do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/games"), nil, ts.Token(t, 5)))
		testutil.AssertStatusCode(t, resp, http.StatusOK)

		var games []broadcast.GameSummary
		testutil.AssertJSONResponse(t, resp, &games)
		require.Len(t, games, 1)
		assert.Equal(t, public.ID, games[0].ID)
		assert.Equal(t, 1, games[0].PlayerCount)
	})
}

func TestGameHandler_History(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ctx := context.Background()

	game := testutil.NewGameBuilder().
		WithShowman(1).
		WithPlayer(2, 0, 400).
		WithPlayer(3, 1, 100).
		Started().
		Finished().
		Build()
	require.NoError(t, ts.Services.Games.Archive(ctx, game))

	resp := do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/games/history"), nil, ts.Token(t, 3)))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var history []handlers.GameResultResponse
	testutil.AssertJSONResponse(t, resp, &history)
	require.Len(t, history, 1)
	assert.Equal(t, game.ID, history[0].GameID)
	require.NotNil(t, history[0].WinnerID)
	assert.Equal(t, 2, *history[0].WinnerID)
	assert.Equal(t, map[int]int{2: 400, 3: 100}, history[0].Scores)

	finishedAt, err := time.Parse(time.RFC3339, history[0].FinishedAt)
	require.NoError(t, err)
	assert.WithinDuration(t, *game.FinishedAt, finishedAt, time.Second)

	resp = do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/games/history"), nil, ts.Token(t, 1)))
	var empty []handlers.GameResultResponse
	testutil.AssertJSONResponse(t, resp, &empty)
	assert.Empty(t, empty)
}
