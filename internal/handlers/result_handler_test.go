package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/testutils"
)

func getJSON(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	return resp
}

func TestHandleGetResult(t *testing.T) {
	repo := testutils.NewSubmissionRepo(testutils.NewCompetitionRepo())
	app := fiber.New()
	app.Get("/submissions/:id", NewResultHandler(repo).HandleGetResult)

	competitionID := uuid.New()
	processedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	score := 0.9

	valid := repo.AddSubmission(competitionID, models.PhasePublic, "a.csv")
	valid.ValidationStatus = models.StatusValid
	valid.Score = &score
	valid.ProcessedAt = &processedAt
	repo.Put(valid)

	invalid := repo.AddSubmission(competitionID, models.PhasePrivate, "b.csv")
	invalid.ValidationStatus = models.StatusInvalid
	invalid.ValidationErrors = []string{"Duplicate IDs found"}
	invalid.ProcessedAt = &processedAt
	repo.Put(invalid)

	pending := repo.AddSubmission(competitionID, models.PhasePublic, "c.csv")

	t.Run("valid", func(t *testing.T) {
		resp := getJSON(t, app, "/submissions/"+valid.ID.String())
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body models.SubmissionResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "valid", body.ValidationStatus)
		require.NotNil(t, body.Score)
		assert.InDelta(t, 0.9, *body.Score, 1e-9)
		assert.Empty(t, body.ValidationErrors)
		require.NotNil(t, body.ProcessedAt)
		assert.True(t, body.ProcessedAt.Equal(processedAt))
	})

	t.Run("invalid", func(t *testing.T) {
		resp := getJSON(t, app, "/submissions/"+invalid.ID.String())
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body models.SubmissionResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "invalid", body.ValidationStatus)
		assert.Equal(t, "private", body.Phase)
		assert.Equal(t, []string{"Duplicate IDs found"}, body.ValidationErrors)
		assert.Nil(t, body.Score)
	})

	t.Run("pending", func(t *testing.T) {
		resp := getJSON(t, app, "/submissions/"+pending.ID.String())
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body models.SubmissionResponse
		decodeBody(t, resp, &body)
		assert.Equal(t, "pending", body.ValidationStatus)
		assert.Nil(t, body.ProcessedAt)
	})

	t.Run("unknown", func(t *testing.T) {
		resp := getJSON(t, app, "/submissions/"+uuid.NewString())
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		resp := getJSON(t, app, "/submissions/not-a-uuid")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
