package routine

import "context"

type Repository interface {
	Create(ctx context.Context, r *Routine) error
	Get(ctx context.Context, id string) (*Routine, error)
	List(ctx context.Context, enabledOnly bool) ([]*Routine, error)
	Update(ctx context.Context, r *Routine) error
	Delete(ctx context.Context, id string) error
}
