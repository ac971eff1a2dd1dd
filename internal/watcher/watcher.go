package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewdeck/crewdeck/internal/client"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

// PollInterval is the fixed tick between due-routine checks. The server's
// trigger dedup makes repeated checks within a cycle harmless, so the watcher
// keeps no state between ticks.
const PollInterval = 2000 * time.Millisecond

type Watcher struct {
	client *client.Client
	loc    *time.Location
}

func New(c *client.Client, loc *time.Location) *Watcher {
	return &Watcher{
		client: c,
		loc:    loc,
	}
}

// Run polls the server until ctx is cancelled. Per-tick failures are logged
// and never terminate the loop; a broken server connection heals on a later
// tick without operator intervention.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher started", "interval", PollInterval, "timezone", w.loc.String())

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	now := time.Now().UTC()
	local := timezone.Localize(now, w.loc)

	due, err := w.client.DueRoutines(ctx, now, local)
	if err != nil {
		slog.Error("failed to fetch due routines", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	for _, d := range due {
		taskID, err := w.client.TriggerRoutine(ctx, d.ID)
		if err != nil {
			// Keep going: the next tick retries anything still due.
			slog.Error("failed to trigger routine", "routine_id", d.ID, "title", d.Title, "error", err)
			continue
		}
		slog.Info("routine triggered", "routine_id", d.ID, "title", d.Title, "task_id", taskID, "cycle_start", d.CycleStart)
	}
}
