package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/finishline/internal/api/handlers"
	"github.com/your-org/finishline/internal/models"
	"github.com/your-org/finishline/internal/pipeline"
)

type fakeResults map[uuid.UUID]*models.RaceResult

func (f fakeResults) GetResult(_ context.Context, id uuid.UUID) (*models.RaceResult, error) {
	return f[id], nil
}

func do(t *testing.T, h http.Handler, path, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Healthz(t *testing.T) {
	r := NewRouter(RouterConfig{})
	w := do(t, r, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_Readyz(t *testing.T) {
	r := NewRouter(RouterConfig{Checks: map[string]handlers.Pinger{
		"nats":  handlers.PingFunc(func(context.Context) error { return nil }),
		"minio": handlers.PingFunc(func(context.Context) error { return errors.New("unreachable") }),
	}})

	w := do(t, r, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "ok", body.Checks["nats"])
	assert.Equal(t, "unreachable", body.Checks["minio"])
}

func TestRouter_RaceSnapshot(t *testing.T) {
	runID := uuid.New()
	r := NewRouter(RouterConfig{APIKey: "secret", Progress: pipeline.NewProgress(runID, 900)})

	assert.Equal(t, http.StatusUnauthorized, do(t, r, "/v1/race", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, "/v1/race", "wrong").Code)

	w := do(t, r, "/v1/race", "secret")
	require.Equal(t, http.StatusOK, w.Code)

	var snap pipeline.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, runID, snap.RunID)
	assert.Equal(t, 900, snap.TotalFrames)
	assert.False(t, snap.WinnerFound)

	assert.Equal(t, http.StatusOK, do(t, r, "/v1/race?api_key=secret", "").Code)
}

func TestRouter_Results(t *testing.T) {
	id := uuid.New()
	winner := 12
	r := NewRouter(RouterConfig{Results: fakeResults{
		id: {RunID: id, WinnerFound: true, WinnerID: &winner, DecisionFrame: 760},
	}})

	w := do(t, r, "/v1/results/"+id.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.RaceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, 12, *got.WinnerID)

	assert.Equal(t, http.StatusNotFound, do(t, r, "/v1/results/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, "/v1/results/not-a-uuid", "").Code)
}

func TestRouter_ResultsWithoutStorage(t *testing.T) {
	r := NewRouter(RouterConfig{})
	assert.Equal(t, http.StatusNotImplemented, do(t, r, "/v1/results/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, "/v1/race", "").Code)
}
