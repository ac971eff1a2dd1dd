package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/crewdeck/crewdeck/internal/auditlog"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/storage"
)

const auditPrefix = "auditlog"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", auditPrefix, id)
}

func (r *YAMLRepository) Append(ctx context.Context, e *auditlog.Entry) error {
	exists, err := r.storage.Exists(ctx, path(e.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("audit entry", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "audit entry already exists", nil)
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal audit entry: %w", err))
	}
	if err := r.storage.Write(ctx, path(e.ID), data); err != nil {
		return cerr.WrapStorageWriteError("audit entry", err)
	}
	return nil
}

func (r *YAMLRepository) List(ctx context.Context, limit, offset int) ([]*auditlog.Entry, int, error) {
	paths, err := r.storage.List(ctx, auditPrefix)
	if err != nil {
		return nil, 0, cerr.WrapStorageReadError("audit log", err)
	}

	// Entry ids are ULIDs, so lexicographic order is creation order.
	sort.Strings(paths)

	var all []*auditlog.Entry
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var e auditlog.Entry
		if err := yaml.Unmarshal(data, &e); err != nil {
			continue
		}
		all = append(all, &e)
	}

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}
