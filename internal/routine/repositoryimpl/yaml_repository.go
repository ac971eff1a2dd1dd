package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/crewdeck/crewdeck/internal/routine"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/storage"
)

const routinesPrefix = "routines"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", routinesPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, rt *routine.Routine) error {
	exists, err := r.storage.Exists(ctx, path(rt.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("routine", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "routine already exists", nil)
	}
	data, err := yaml.Marshal(rt)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal routine: %w", err))
	}
	if err := r.storage.Write(ctx, path(rt.ID), data); err != nil {
		return cerr.WrapStorageWriteError("routine", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*routine.Routine, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("routine", err)
	}
	var rt routine.Routine
	if err := yaml.Unmarshal(data, &rt); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal routine: %w", err))
	}
	return &rt, nil
}

func (r *YAMLRepository) List(ctx context.Context, enabledOnly bool) ([]*routine.Routine, error) {
	paths, err := r.storage.List(ctx, routinesPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("routines", err)
	}

	sort.Strings(paths)

	var all []*routine.Routine
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var rt routine.Routine
		if err := yaml.Unmarshal(data, &rt); err != nil {
			continue
		}
		if enabledOnly && !rt.Enabled {
			continue
		}
		all = append(all, &rt)
	}
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, rt *routine.Routine) error {
	exists, err := r.storage.Exists(ctx, path(rt.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("routine", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "routine not found", nil)
	}
	data, err := yaml.Marshal(rt)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal routine: %w", err))
	}
	if err := r.storage.Write(ctx, path(rt.ID), data); err != nil {
		return cerr.WrapStorageWriteError("routine", err)
	}
	return nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("routine", err)
	}
	return nil
}
