package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/internal/routine"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/storage"
)

func newRepo(t *testing.T) *YAMLRepository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(store)
}

func sampleRoutine(id string) *routine.Routine {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &routine.Routine{
		ID:    id,
		Title: "weekly sync",
		Schedule: routine.WeeklySchedule{
			Type:       routine.ScheduleTypeWeekly,
			DaysOfWeek: []int{1, 4},
			Hour:       9,
			Minute:     30,
		},
		Color:     "#ff8800",
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestYAMLRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	rt := sampleRoutine("01A")
	require.NoError(t, repo.Create(ctx, rt))

	got, err := repo.Get(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, rt, got)

	// Duplicate create is rejected.
	err = repo.Create(ctx, sampleRoutine("01A"))
	assert.True(t, cerr.IsCode(err, cerr.AlreadyExists), "expected already exists, got %v", err)

	fired := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	rt.LastTriggeredAt = &fired
	rt.Enabled = false
	require.NoError(t, repo.Update(ctx, rt))

	got, err = repo.Get(ctx, "01A")
	require.NoError(t, err)
	require.NotNil(t, got.LastTriggeredAt)
	assert.True(t, got.LastTriggeredAt.Equal(fired))
	assert.False(t, got.Enabled)

	require.NoError(t, repo.Delete(ctx, "01A"))
	_, err = repo.Get(ctx, "01A")
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "expected not found, got %v", err)
}

func TestYAMLRepositoryGetMissing(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "expected not found, got %v", err)
}

func TestYAMLRepositoryUpdateMissing(t *testing.T) {
	repo := newRepo(t)

	err := repo.Update(context.Background(), sampleRoutine("ghost"))
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "expected not found, got %v", err)
}

func TestYAMLRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	enabled := sampleRoutine("01A")
	disabled := sampleRoutine("01B")
	disabled.Enabled = false
	require.NoError(t, repo.Create(ctx, enabled))
	require.NoError(t, repo.Create(ctx, disabled))

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabledOnly, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabledOnly, 1)
	assert.Equal(t, "01A", enabledOnly[0].ID)
}

func TestYAMLRepositoryListEmpty(t *testing.T) {
	repo := newRepo(t)

	all, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, all)
}
