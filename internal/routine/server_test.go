package routine_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentrepo "github.com/crewdeck/crewdeck/internal/agent/repositoryimpl"
	auditlogrepo "github.com/crewdeck/crewdeck/internal/auditlog/repositoryimpl"
	"github.com/crewdeck/crewdeck/internal/eventbus"
	"github.com/crewdeck/crewdeck/internal/routine"
	routinerepo "github.com/crewdeck/crewdeck/internal/routine/repositoryimpl"
	taskrepo "github.com/crewdeck/crewdeck/internal/task/repositoryimpl"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	bus := eventbus.New()
	repo := routinerepo.NewYAMLRepository(store)
	service := routine.NewService(
		repo,
		taskrepo.NewYAMLRepository(store),
		auditlogrepo.NewYAMLRepository(store),
		agentrepo.NewYAMLRepository(store),
		bus,
	)
	server := routine.NewServer(repo, service, bus)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(cerr.NewJSONResponseChiMiddleware())
		server.Routes(r)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createReq(title string) map[string]any {
	return map[string]any{
		"title": title,
		"schedule": map[string]any{
			"type":       "weekly",
			"daysOfWeek": []int{1},
			"hour":       9,
			"minute":     0,
		},
	}
}

func TestRoutineAPICreateAndGet(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/routines", createReq("weekly sync"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created routine.RoutineJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "weekly sync", created.Title)
	assert.True(t, created.Enabled)
	assert.Nil(t, created.LastTriggeredAt)

	rec = doJSON(t, h, http.MethodGet, "/api/routines/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got routine.RoutineJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []int{1}, got.Schedule.DaysOfWeek)
}

func TestRoutineAPICreateInvalidSchedule(t *testing.T) {
	h := newTestRouter(t)

	req := createReq("bad")
	req["schedule"].(map[string]any)["hour"] = 25

	rec := doJSON(t, h, http.MethodPost, "/api/routines", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InvalidArgument", body.Code)
}

func TestRoutineAPIUpdate(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/routines", createReq("weekly sync"))
	require.Equal(t, http.StatusOK, rec.Code)
	var created routine.RoutineJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPatch, "/api/routines/"+created.ID, map[string]any{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated routine.RoutineJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.Enabled)
	// Untouched fields survive the patch.
	assert.Equal(t, "weekly sync", updated.Title)
	assert.Equal(t, []int{1}, updated.Schedule.DaysOfWeek)
}

func TestRoutineAPIGetMissing(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/routines/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutineAPIDueAndTrigger(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/routines", createReq("weekly sync"))
	require.Equal(t, http.StatusOK, rec.Code)
	var created routine.RoutineJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Monday 09:45 local, Monday 00:45 UTC.
	now := time.Date(2026, 3, 2, 0, 45, 0, 0, time.UTC)
	dueURL := fmt.Sprintf("/api/routines/due?now=%d&day_of_week=1&hour=9&minute=45", now.UnixMilli())

	rec = doJSON(t, h, http.MethodGet, dueURL, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dueResp struct {
		Due []routine.Due `json:"due"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dueResp))
	require.Len(t, dueResp.Due, 1)
	assert.Equal(t, created.ID, dueResp.Due[0].ID)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), dueResp.Due[0].CycleStart)

	rec = doJSON(t, h, http.MethodPost, "/api/routines/"+created.ID+"/trigger", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var trig struct {
		TaskID string `json:"taskId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trig))
	assert.NotEmpty(t, trig.TaskID)

	// The occurrence no longer shows as due.
	rec = doJSON(t, h, http.MethodGet, dueURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dueResp.Due = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dueResp))
	assert.Empty(t, dueResp.Due)
}

func TestRoutineAPIDueBadParams(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/api/routines/due?now=abc&day_of_week=1&hour=9&minute=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/routines/due?now=1000&day_of_week=9&hour=9&minute=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutineAPIListEnabledFilter(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/routines", createReq("a"))
	require.Equal(t, http.StatusOK, rec.Code)

	req := createReq("b")
	req["enabled"] = false
	rec = doJSON(t, h, http.MethodPost, "/api/routines", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Routines []*routine.RoutineJSON `json:"routines"`
	}
	rec = doJSON(t, h, http.MethodGet, "/api/routines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Routines, 2)

	rec = doJSON(t, h, http.MethodGet, "/api/routines?enabled=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list.Routines = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Routines, 1)
	assert.Equal(t, "a", list.Routines[0].Title)
}

func TestRoutineAPIDelete(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/routines", createReq("a"))
	require.Equal(t, http.StatusOK, rec.Code)
	var created routine.RoutineJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodDelete, "/api/routines/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/routines/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
