package agent

import "context"

type Repository interface {
	Create(ctx context.Context, a *Agent) error
	Get(ctx context.Context, id string) (*Agent, error)
	List(ctx context.Context) ([]*Agent, error)
	FindByRole(ctx context.Context, role Role) (*Agent, error)
	Delete(ctx context.Context, id string) error
}
