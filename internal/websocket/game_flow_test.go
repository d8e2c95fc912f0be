package websocket_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/quiz-engine/internal/api/handlers"
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/gameplay"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTimeout = 5 * time.Second

func createGame(t *testing.T, ts *testutil.TestServer, token string, private bool) string {
	t.Helper()

	record := testutil.NewPackageRecordBuilder().Build(t, ts.DB.DB)
	req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/games"), map[string]interface{}{
		"packageId":  record.ID.String(),
		"maxPlayers": 4,
		"isPrivate":  private,
	}, token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var created handlers.CreateGameResponse
	testutil.AssertJSONResponse(t, resp, &created)
	return created.Game.ID
}

func seat(slot int) *int { return &slot }

func TestGameFlow_SimpleQuestion(t *testing.T) {
	ts := testutil.NewTestServer(t)
	gameID := createGame(t, ts, ts.Token(t, 1), false)

	showman := testutil.NewWSClient(t, ts.WebSocketURL(ts.Token(t, 1)))
	alice := testutil.NewWSClient(t, ts.WebSocketURL(ts.Token(t, 2)))
	bob := testutil.NewWSClient(t, ts.WebSocketURL(ts.Token(t, 3)))

	showman.Join(gameID, gameplay.JoinPayload{Role: domain.RoleShowman, Username: "host"})
	showman.ExpectEvent(broadcast.EventGameData, defaultTimeout)
	alice.Join(gameID, gameplay.JoinPayload{Role: domain.RolePlayer, Slot: seat(0), Username: "alice"})
	alice.ExpectEvent(broadcast.EventGameData, defaultTimeout)
	bob.Join(gameID, gameplay.JoinPayload{Role: domain.RolePlayer, Slot: seat(1), Username: "bob"})
	bob.ExpectEvent(broadcast.EventGameData, defaultTimeout)

	var joined broadcast.PlayerJoinedPayload
	showman.ExpectPayload(broadcast.EventPlayerJoined, &joined, defaultTimeout)
	assert.Equal(t, 2, joined.Player.Meta.ID)

	showman.Send(engine.ActionStart, gameID, nil)
	var started broadcast.GameStartedPayload
	alice.ExpectPayload(broadcast.EventGameStarted, &started, defaultTimeout)
	assert.Equal(t, domain.PhaseChoosing, started.Phase)
	bob.ExpectEvent(broadcast.EventGameStarted, defaultTimeout)

	showman.Send(engine.ActionPickQuestion, gameID, gameplay.PickQuestionPayload{QuestionID: testutil.QSimple100})
	var question broadcast.QuestionDataPayload
	bob.ExpectPayload(broadcast.EventQuestionData, &question, defaultTimeout)
	assert.Equal(t, testutil.QSimple100, question.Question.ID)
	assert.Empty(t, question.Question.Answer)

	bob.Send(engine.ActionBuzz, gameID, nil)
	var request broadcast.AnswerRequestPayload
	showman.ExpectPayload(broadcast.EventAnswerRequest, &request, defaultTimeout)
	assert.Equal(t, 3, request.PlayerID)

	showman.Send(engine.ActionAnswerResult, gameID, gameplay.AnswerResultPayload{Correct: true})
	var result broadcast.AnswerResultPayload
	alice.ExpectPayload(broadcast.EventAnswerResult, &result, defaultTimeout)
	assert.Equal(t, 3, result.PlayerID)
	assert.Equal(t, domain.AnswerCorrect, result.Result)
	assert.Equal(t, 100, result.Score)

	// The question is closed; only the buzzing socket hears about it.
	alice.Send(engine.ActionBuzz, gameID, nil)
	assert.Equal(t, domain.ErrCodeInvalidPhase, alice.ExpectError(defaultTimeout).Code)
	bob.ExpectNoEvent(broadcast.EventError, 200*time.Millisecond)

	game, err := ts.Games.Get(t.Context(), gameID)
	require.NoError(t, err)
	testutil.AssertGamePhase(t, game, domain.PhaseShowingAnswer)
	testutil.AssertScore(t, game, 3, 100)
	testutil.AssertScore(t, game, 2, 0)
}

func TestGameFlow_CreatedGamesAreAnnounced(t *testing.T) {
	ts := testutil.NewTestServer(t)
	lobby := testutil.NewWSClient(t, ts.WebSocketURL(ts.Token(t, 9)))
	// Wait for registration before anything is published.
	require.Eventually(t, func() bool { return ts.Hub.ClientCount() == 1 }, defaultTimeout, 10*time.Millisecond)

	private := createGame(t, ts, ts.Token(t, 1), true)
	public := createGame(t, ts, ts.Token(t, 1), false)

	var created broadcast.GameCreatedPayload
	lobby.ExpectPayload(broadcast.EventGameCreated, &created, defaultTimeout)
	assert.Equal(t, public, created.Game.ID)
	assert.NotEqual(t, private, created.Game.ID)
	lobby.ExpectNoEvent(broadcast.EventGameCreated, 200*time.Millisecond)
}
