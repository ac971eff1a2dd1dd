package watcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/client"
	"github.com/crewdeck/crewdeck/internal/routine"
)

type fakeServer struct {
	mu        sync.Mutex
	due       []routine.Due
	triggered []string
	failIDs   map[string]bool
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/routines/due", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NotEmpty(t, r.URL.Query().Get("now"))
		assert.NotEmpty(t, r.URL.Query().Get("day_of_week"))

		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"due": f.due})
	})
	mux.HandleFunc("POST /api/routines/{id}/trigger", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failIDs[id] {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"code": "INTERNAL", "message": "boom"})
			return
		}
		f.triggered = append(f.triggered, id)
		json.NewEncoder(w).Encode(map[string]string{"taskId": "task-" + id})
	})
	return mux
}

func (f *fakeServer) triggeredIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.triggered...)
}

func newTestWatcher(t *testing.T, fake *fakeServer) *Watcher {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return New(client.New(srv.URL, "secret"), time.UTC)
}

func TestTickTriggersDueRoutines(t *testing.T) {
	fake := &fakeServer{
		due: []routine.Due{
			{ID: "01A", Title: "standup", CycleStart: time.Now().UTC()},
			{ID: "01B", Title: "review", CycleStart: time.Now().UTC()},
		},
	}
	w := newTestWatcher(t, fake)

	w.tick(t.Context())

	assert.Equal(t, []string{"01A", "01B"}, fake.triggeredIDs())
}

func TestTickNothingDue(t *testing.T) {
	fake := &fakeServer{}
	w := newTestWatcher(t, fake)

	w.tick(t.Context())

	assert.Empty(t, fake.triggeredIDs())
}

func TestTickContinuesAfterTriggerFailure(t *testing.T) {
	fake := &fakeServer{
		due: []routine.Due{
			{ID: "01A", Title: "standup"},
			{ID: "01B", Title: "review"},
			{ID: "01C", Title: "retro"},
		},
		failIDs: map[string]bool{"01B": true},
	}
	w := newTestWatcher(t, fake)

	w.tick(t.Context())

	// The failed routine is skipped, the rest still fire.
	assert.Equal(t, []string{"01A", "01C"}, fake.triggeredIDs())
}

func TestTickSurvivesUnreachableServer(t *testing.T) {
	w := New(client.New("http://127.0.0.1:1", "secret"), time.UTC)

	// Must not panic or exit; the next tick would simply retry.
	w.tick(t.Context())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	fake := &fakeServer{}
	w := newTestWatcher(t, fake)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadEnvReportsAllMissing(t *testing.T) {
	for _, name := range requiredVars {
		t.Setenv(name, "")
	}

	_, err := LoadEnv()
	require.Error(t, err)
	for _, name := range requiredVars {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CREWDECK_SERVER_URL", "http://localhost:3200")
	t.Setenv("CREWDECK_API_KEY", "secret")
	t.Setenv("CREWDECK_TIMEZONE", "Asia/Tokyo")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3200", env.ServerURL)
	assert.Equal(t, "secret", env.APIKey)
	assert.Equal(t, "Asia/Tokyo", env.Timezone)
	assert.Equal(t, "info", env.LogLevel)
}

func TestLoadEnvSingleMissing(t *testing.T) {
	t.Setenv("CREWDECK_SERVER_URL", "http://localhost:3200")
	t.Setenv("CREWDECK_API_KEY", "secret")
	t.Setenv("CREWDECK_TIMEZONE", "")

	_, err := LoadEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREWDECK_TIMEZONE")
	assert.NotContains(t, err.Error(), "CREWDECK_API_KEY")
}
