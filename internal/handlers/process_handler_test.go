package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/competition-scorer/internal/models"
	"alfredoptarigan/competition-scorer/internal/services"
)

type stubProcessor struct {
	outcome *services.Outcome
	err     error
	got     uuid.UUID
}

func (p *stubProcessor) Process(_ context.Context, id uuid.UUID) (*services.Outcome, error) {
	p.got = id
	return p.outcome, p.err
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func postProcess(t *testing.T, processor services.SubmissionProcessor, body string) *http.Response {
	t.Helper()
	app := fiber.New()
	app.Post("/process", NewProcessHandler(processor).HandleProcess)

	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleProcess_Scored(t *testing.T) {
	id := uuid.New()
	processor := &stubProcessor{outcome: &services.Outcome{Kind: services.OutcomeScored, Score: 0.75}}

	resp := postProcess(t, processor, fmt.Sprintf(`{"submissionId":"%s"}`, id))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, id, processor.got)

	var body models.ProcessResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	require.NotNil(t, body.Score)
	assert.InDelta(t, 0.75, *body.Score, 1e-9)
}

func TestHandleProcess_ZeroScoreIsStillPresent(t *testing.T) {
	processor := &stubProcessor{outcome: &services.Outcome{Kind: services.OutcomeScored, Score: 0}}

	resp := postProcess(t, processor, fmt.Sprintf(`{"submissionId":"%s"}`, uuid.New()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Contains(t, body, "score")
	assert.Equal(t, 0.0, body["score"])
}

func TestHandleProcess_Invalid(t *testing.T) {
	errs := []string{"Row count mismatch: expected 3, got 2", "Missing ID: 3"}
	processor := &stubProcessor{outcome: &services.Outcome{Kind: services.OutcomeInvalid, Errors: errs}}

	resp := postProcess(t, processor, fmt.Sprintf(`{"submissionId":"%s"}`, uuid.New()))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body models.ProcessResponse
	decodeBody(t, resp, &body)
	assert.False(t, body.Success)
	assert.Equal(t, errs, body.Errors)
	assert.Nil(t, body.Score)
}

func TestHandleProcess_OrchestrationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", fmt.Errorf("%w: row missing", services.ErrSubmissionNotFound), "submission not found"},
		{"competition", fmt.Errorf("%w: row missing", services.ErrCompetitionNotFound), "competition not found"},
		{"answer key", fmt.Errorf("%w: none", services.ErrAnswerKeyNotFound), "answer key not found"},
		{"download", fmt.Errorf("%w: disk", services.ErrDownload), "download error"},
		{"persist", fmt.Errorf("%w: db", services.ErrPersist), "failed to persist outcome"},
		{"scoring", fmt.Errorf("%w: value %q is not numeric", services.ErrScoring, "abc"), `scoring error: value "abc" is not numeric`},
		{"other", fmt.Errorf("connection refused"), "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postProcess(t, &stubProcessor{err: tt.err}, fmt.Sprintf(`{"submissionId":"%s"}`, uuid.New()))
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

			var body models.ProcessResponse
			decodeBody(t, resp, &body)
			assert.Equal(t, tt.want, body.Error)
		})
	}
}

func TestHandleProcess_BadRequests(t *testing.T) {
	for name, body := range map[string]string{
		"malformed json": `{"submissionId":`,
		"missing id":     `{}`,
		"not a uuid":     `{"submissionId":"abc"}`,
	} {
		t.Run(name, func(t *testing.T) {
			processor := &stubProcessor{}
			resp := postProcess(t, processor, body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, uuid.Nil, processor.got)
		})
	}
}
