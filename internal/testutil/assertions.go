package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertGamePhase verifies the phase derived from the stored game state
func AssertGamePhase(t *testing.T, game *domain.Game, expected domain.GamePhase) {
	t.Helper()
	require.NotNil(t, game, "game is nil")
	assert.Equal(t, expected, domain.GetGamePhase(game), "unexpected phase")
}

// AssertScore verifies a participant's score
func AssertScore(t *testing.T, game *domain.Game, userID, expected int) {
	t.Helper()
	p := game.FindPlayer(userID)
	require.NotNil(t, p, "player %d not in game", userID)
	assert.Equal(t, expected, p.Score, "unexpected score for player %d", userID)
}
