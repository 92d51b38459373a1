package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-crewkit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCrewService struct {
	run *models.CrewRun
	err error

	gotTopic  string
	gotInputs map[string]interface{}
}

func (s *stubCrewService) RunTopic(_ context.Context, topic string, inputs map[string]interface{}) (*models.CrewRun, error) {
	s.gotTopic = topic
	s.gotInputs = inputs
	return s.run, s.err
}

func crewTestApp(svc *stubCrewService) *fiber.App {
	app := fiber.New()
	h := NewCrewHandler(svc, zap.NewNop())
	h.SetupCrewRoutes(app.Group("/api/v1"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestKickoffSuccess(t *testing.T) {
	svc := &stubCrewService{run: &models.CrewRun{
		ID:     1,
		Topic:  "AI_Ethics",
		Status: models.RunStatusCompleted,
	}}
	app := crewTestApp(svc)

	resp := postJSON(t, app, "/api/v1/crew/kickoff", map[string]interface{}{
		"topic":  "AI Ethics",
		"inputs": map[string]interface{}{"depth": 2},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "AI_Ethics", body["topic"])
	assert.Equal(t, "AI Ethics", svc.gotTopic)
	assert.Equal(t, float64(2), svc.gotInputs["depth"].(float64))
}

func TestKickoffValidationError(t *testing.T) {
	svc := &stubCrewService{}
	app := crewTestApp(svc)

	resp := postJSON(t, app, "/api/v1/crew/kickoff", map[string]interface{}{"inputs": map[string]interface{}{}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Validation failed", body["error"])
	assert.Empty(t, svc.gotTopic, "service is never reached on invalid input")
}

func TestKickoffServiceError(t *testing.T) {
	svc := &stubCrewService{
		run: &models.CrewRun{Status: models.RunStatusFailed, Error: "model unavailable"},
		err: errors.New("model unavailable"),
	}
	app := crewTestApp(svc)

	resp := postJSON(t, app, "/api/v1/crew/kickoff", map[string]interface{}{"topic": "AI Ethics"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Crew kickoff failed", body["error"])
	require.NotNil(t, body["run"])
}
