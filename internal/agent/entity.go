package agent

import "time"

type Role string

const (
	RoleSystem Role = "system"
	RoleLead   Role = "lead"
	RoleWorker Role = "worker"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleLead, RoleWorker:
		return true
	}
	return false
}

// Agent is a dashboard identity tasks can be attributed to. The scheduler
// attributes routine-created tasks to the system identity, falling back to a
// lead, when one is registered.
type Agent struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Role        Role      `yaml:"role"`
	CreatedAt   time.Time `yaml:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at"`
}
