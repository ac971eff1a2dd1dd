package routine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/crewdeck/crewdeck/internal/agent"
	"github.com/crewdeck/crewdeck/internal/auditlog"
	"github.com/crewdeck/crewdeck/internal/eventbus"
	"github.com/crewdeck/crewdeck/internal/task"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

// Service holds the due query and the trigger executor. Both run inside the
// store process so evaluation and commit share one transactional boundary;
// the watcher stays a thin client.
type Service struct {
	repo      Repository
	taskRepo  task.Repository
	auditRepo auditlog.Repository
	agentRepo agent.Repository
	eventBus  *eventbus.Bus

	// Serializes trigger commits. Note this only protects against concurrent
	// triggers within this process; running more than one store instance
	// against the same storage is not supported.
	mu sync.Mutex
}

func NewService(
	repo Repository,
	taskRepo task.Repository,
	auditRepo auditlog.Repository,
	agentRepo agent.Repository,
	eventBus *eventbus.Bus,
) *Service {
	return &Service{
		repo:      repo,
		taskRepo:  taskRepo,
		auditRepo: auditRepo,
		agentRepo: agentRepo,
		eventBus:  eventBus,
	}
}

// DueRoutines returns the routines due at the given instant, per EvaluateDue.
func (s *Service) DueRoutines(ctx context.Context, now time.Time, local timezone.LocalTime) ([]Due, error) {
	if err := local.Validate(); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, err.Error(), nil)
	}
	routines, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	return EvaluateDue(now, local, routines), nil
}

// Trigger materializes the routine into a task, advances the routine's
// trigger bookkeeping and appends an audit entry — all or none observable.
// It performs no window or dedup check: callers must only pass ids vetted by
// the due query in the same tick.
func (s *Service) Trigger(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	priority := rt.Priority
	if priority == "" {
		priority = task.PriorityNormal
	}
	t := &task.Task{
		ID:              ulid.Make().String(),
		Title:           rt.Title,
		Description:     rt.Description,
		Priority:        priority,
		Status:          task.StatusInbox,
		AssignedAgentID: s.resolveAssignee(ctx),
		Metadata:        map[string]string{"routine_id": rt.ID},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.taskRepo.Create(ctx, t); err != nil {
		return "", commitError(err)
	}

	prev := *rt
	rt.LastTriggeredAt = &now
	rt.UpdatedAt = now
	if err := s.repo.Update(ctx, rt); err != nil {
		s.rollback(ctx, t.ID, nil)
		return "", commitError(err)
	}

	entry := &auditlog.Entry{
		ID:        ulid.Make().String(),
		Type:      auditlog.TypeTaskCreatedFromRoutine,
		Message:   fmt.Sprintf("task %s created from routine %q", t.ID, rt.Title),
		Metadata:  map[string]string{"routine_id": rt.ID},
		CreatedAt: now,
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.rollback(ctx, t.ID, &prev)
		return "", commitError(err)
	}

	s.eventBus.PublishNew(eventbus.EventTypeRoutineTriggered, rt.ID, map[string]string{"task_id": t.ID})
	s.eventBus.PublishNew(eventbus.EventTypeTaskCreated, t.ID, map[string]string{"routine_id": rt.ID})
	return t.ID, nil
}

// resolveAssignee returns the system identity to attribute routine-created
// tasks to, falling back to a lead. Attribution is best effort; a task
// without an assignee is fine.
func (s *Service) resolveAssignee(ctx context.Context) string {
	for _, role := range []agent.Role{agent.RoleSystem, agent.RoleLead} {
		a, err := s.agentRepo.FindByRole(ctx, role)
		if err == nil {
			return a.ID
		}
		if !cerr.IsCode(err, cerr.NotFound) {
			slog.WarnContext(ctx, "failed to resolve task assignee", "role", role, "error", err)
		}
	}
	return ""
}

// rollback undoes the writes that landed before a trigger commit failed.
// Compensation failures are logged: storage is expected to be in trouble
// already at that point, and the alternative is leaving partial state silent.
func (s *Service) rollback(ctx context.Context, taskID string, prevRoutine *Routine) {
	if prevRoutine != nil {
		if err := s.repo.Update(ctx, prevRoutine); err != nil {
			slog.ErrorContext(ctx, "trigger rollback: failed to restore routine", "routine_id", prevRoutine.ID, "error", err)
		}
	}
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		slog.ErrorContext(ctx, "trigger rollback: failed to delete task", "task_id", taskID, "error", err)
	}
}

func commitError(err error) error {
	return cerr.NewError(cerr.Aborted, "trigger did not commit", err)
}
