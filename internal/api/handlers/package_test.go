package handlers_test

import (
	"net/http"
	"testing"

	"github.com/dom/quiz-engine/internal/api/handlers"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageHandler_Create(t *testing.T) {
	ts := testutil.NewTestServer(t)
	token := ts.Token(t, 4)
	rounds := testutil.DefaultPackage().Rounds

	finalFirst := []domain.Round{rounds[1], rounds[0]}
	dupTheme := testutil.DefaultPackage().Rounds
	dupTheme[0].Themes[1].ID = dupTheme[0].Themes[0].ID

	tests := []struct {
		name           string
		request        map[string]interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "valid package",
			request:        map[string]interface{}{"title": "Trivia", "author": "dom", "rounds": rounds},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing title",
			request:        map[string]interface{}{"rounds": rounds},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "title is required",
		},
		{
			name:           "no rounds",
			request:        map[string]interface{}{"title": "Empty"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "at least one round",
		},
		{
			name:           "final round not last",
			request:        map[string]interface{}{"title": "Odd", "rounds": finalFirst},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "only the last round may be final",
		},
		{
			name:           "duplicate theme",
			request:        map[string]interface{}{"title": "Dup", "rounds": dupTheme},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "duplicate theme id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/packages"), tt.request, token))
			if tt.expectedError != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
				return
			}
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)

			var created handlers.PackageResponse
			testutil.AssertJSONResponse(t, resp, &created)
			assert.Equal(t, "Trivia", created.Title)
			assert.Equal(t, 2, created.Rounds)
			assert.Equal(t, 4, created.CreatedBy)

			// The stored package is playable.
			id, err := uuid.Parse(created.ID)
			require.NoError(t, err)
			record, err := ts.Repos.Package.GetByID(t.Context(), id)
			require.NoError(t, err)
			pkg, err := record.ToPackage()
			require.NoError(t, err)
			assert.Equal(t, rounds, pkg.Rounds)
		})
	}
}

func TestPackageHandler_Get(t *testing.T) {
	ts := testutil.NewTestServer(t)
	token := ts.Token(t, 4)
	record := testutil.NewPackageRecordBuilder().WithCreator(8).Build(t, ts.DB.DB)

	resp := do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/packages/"+record.ID.String()), nil, token))
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var got handlers.PackageResponse
	testutil.AssertJSONResponse(t, resp, &got)
	assert.Equal(t, record.ID.String(), got.ID)
	assert.Equal(t, 2, got.Rounds)
	assert.Equal(t, 8, got.CreatedBy)

	resp = do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/packages/"+uuid.NewString()), nil, token))
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "Package not found")

	resp = do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/packages/bad"), nil, token))
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
}
