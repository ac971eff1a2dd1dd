package routine

import (
	"sort"
	"time"

	"github.com/crewdeck/crewdeck/pkg/timezone"
)

// GraceWindowMinutes is how long after its scheduled minute a routine can
// still fire. It covers the watcher or the store being briefly unavailable;
// occurrences older than the window are missed, not backfilled.
const GraceWindowMinutes = 60

// Due identifies one routine occurrence that should fire this cycle.
// CycleStart is the UTC instant the occurrence was scheduled for, at minute
// precision.
type Due struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CycleStart time.Time `json:"cycleStart"`
}

// EvaluateDue decides which routines are due at the given instant. now is the
// UTC evaluation instant and local its localized calendar components in the
// process-wide zone. Disabled routines never fire. Results are ordered by
// routine id.
//
// All arithmetic is in whole minutes. A routine is eligible while
// 0 <= currentMinuteOfDay - scheduledMinuteOfDay < GraceWindowMinutes; the
// weekday filter anchors the window to the schedule's own calendar day, so a
// schedule late in the day is never due past midnight even though its nominal
// window would extend there.
func EvaluateDue(now time.Time, local timezone.LocalTime, routines []*Routine) []Due {
	// Minute precision: without the truncation a later evaluation within the
	// same minute would produce a cycleStart a few seconds past the stored
	// LastTriggeredAt and defeat the dedup below.
	nowMinute := now.UTC().Truncate(time.Minute)

	var due []Due
	for _, r := range routines {
		if !r.Enabled {
			continue
		}
		if r.Schedule.Type != ScheduleTypeWeekly {
			continue
		}
		if !r.Schedule.OnDay(local.DayOfWeek) {
			continue
		}
		delta := local.MinuteOfDay() - r.Schedule.MinuteOfDay()
		if delta < 0 || delta >= GraceWindowMinutes {
			continue
		}
		cycleStart := nowMinute.Add(-time.Duration(delta) * time.Minute)
		if r.LastTriggeredAt != nil && !r.LastTriggeredAt.Before(cycleStart) {
			// Already fired for this occurrence.
			continue
		}
		due = append(due, Due{ID: r.ID, Title: r.Title, CycleStart: cycleStart})
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due
}
