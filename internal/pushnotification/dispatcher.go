package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crewdeck/crewdeck/internal/eventbus"
	"github.com/crewdeck/crewdeck/internal/routine"
	"github.com/crewdeck/crewdeck/internal/task"
)

// Dispatcher turns routine trigger events into web push notifications so
// an operator sees new routine-created tasks without the dashboard open.
type Dispatcher struct {
	eventBus    *eventbus.Bus
	routineRepo routine.Repository
	taskRepo    task.Repository
	sender      *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, routineRepo routine.Repository, taskRepo task.Repository, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus:    eventBus,
		routineRepo: routineRepo,
		taskRepo:    taskRepo,
		sender:      sender,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("push notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Type == eventbus.EventTypeRoutineTriggered {
				d.handleRoutineTriggered(ctx, event)
			}
		}
	}
}

func (d *Dispatcher) handleRoutineTriggered(ctx context.Context, event *eventbus.Event) {
	rt, err := d.routineRepo.Get(ctx, event.ResourceID)
	if err != nil {
		slog.Error("push dispatcher: failed to get routine", "id", event.ResourceID, "error", err)
		return
	}

	var url string
	if taskID := event.Metadata["task_id"]; taskID != "" {
		if t, err := d.taskRepo.Get(ctx, taskID); err == nil {
			url = fmt.Sprintf("/tasks/%s", t.ID)
		}
	}

	d.sender.SendToAll(ctx, &NotificationPayload{
		Title: "Routine Triggered",
		Body:  rt.Title,
		URL:   url,
		Tag:   event.ID,
	})
}
