package routine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdeck/crewdeck/pkg/timezone"
)

func weeklyRoutine(id string, days []int, hour, minute int) *Routine {
	return &Routine{
		ID:    id,
		Title: "routine " + id,
		Schedule: WeeklySchedule{
			Type:       ScheduleTypeWeekly,
			DaysOfWeek: days,
			Hour:       hour,
			Minute:     minute,
		},
		Enabled: true,
	}
}

func TestEvaluateDue_WeeklySync(t *testing.T) {
	// Monday 09:00 schedule, evaluated Monday 09:45 in Asia/Tokyo (UTC+9).
	r := weeklyRoutine("01A", []int{1}, 9, 0)

	// Monday 09:45 JST == Monday 00:45 UTC.
	now := time.Date(2026, 3, 2, 0, 45, 12, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 1, Hour: 9, Minute: 45}

	due := EvaluateDue(now, local, []*Routine{r})
	require.Len(t, due, 1)
	assert.Equal(t, "01A", due[0].ID)
	// cycleStart is 45 minutes before now, at minute precision.
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), due[0].CycleStart)
}

func TestEvaluateDue_DedupAfterTrigger(t *testing.T) {
	r := weeklyRoutine("01A", []int{1}, 9, 0)

	now := time.Date(2026, 3, 2, 0, 45, 12, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 1, Hour: 9, Minute: 45}

	// A trigger anywhere at or after cycleStart suppresses the occurrence.
	fired := time.Date(2026, 3, 2, 0, 2, 30, 0, time.UTC)
	r.LastTriggeredAt = &fired

	assert.Empty(t, EvaluateDue(now, local, []*Routine{r}))

	// Re-evaluation two seconds later in the same minute stays suppressed.
	assert.Empty(t, EvaluateDue(now.Add(2*time.Second), local, []*Routine{r}))
}

func TestEvaluateDue_TriggerBeforeCycleDoesNotSuppress(t *testing.T) {
	r := weeklyRoutine("01A", []int{1}, 9, 0)

	now := time.Date(2026, 3, 2, 0, 45, 0, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 1, Hour: 9, Minute: 45}

	// Fired last week: strictly before this cycleStart, so due again.
	fired := time.Date(2026, 2, 23, 0, 1, 0, 0, time.UTC)
	r.LastTriggeredAt = &fired

	due := EvaluateDue(now, local, []*Routine{r})
	require.Len(t, due, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), due[0].CycleStart)
}

func TestEvaluateDue_WrongWeekday(t *testing.T) {
	r := weeklyRoutine("01A", []int{1}, 9, 0)

	// Tuesday 09:45.
	now := time.Date(2026, 3, 3, 0, 45, 0, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 2, Hour: 9, Minute: 45}

	assert.Empty(t, EvaluateDue(now, local, []*Routine{r}))
}

func TestEvaluateDue_GraceWindow(t *testing.T) {
	tests := []struct {
		name   string
		hour   int
		minute int
		want   bool
	}{
		{"before scheduled minute", 8, 59, false},
		{"exact scheduled minute", 9, 0, true},
		{"last minute of window", 9, 59, true},
		{"window expired", 10, 0, false},
		{"well past window", 10, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := weeklyRoutine("01A", []int{1}, 9, 0)
			now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
			local := timezone.LocalTime{DayOfWeek: 1, Hour: tt.hour, Minute: tt.minute}

			due := EvaluateDue(now, local, []*Routine{r})
			if tt.want {
				assert.Len(t, due, 1)
			} else {
				assert.Empty(t, due)
			}
		})
	}
}

func TestEvaluateDue_DisabledNeverDue(t *testing.T) {
	r := weeklyRoutine("01A", []int{1}, 9, 0)
	r.Enabled = false

	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 1, Hour: 9, Minute: 0}

	assert.Empty(t, EvaluateDue(now, local, []*Routine{r}))
}

func TestEvaluateDue_LateScheduleNotDueAfterMidnight(t *testing.T) {
	// 23:40 schedule on Monday. Tuesday 00:10 is within 60 nominal minutes
	// but the weekday filter keeps the window on Monday.
	r := weeklyRoutine("01A", []int{1}, 23, 40)

	now := time.Date(2026, 3, 3, 0, 10, 0, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 2, Hour: 0, Minute: 10}

	assert.Empty(t, EvaluateDue(now, local, []*Routine{r}))
}

func TestEvaluateDue_OrderedByID(t *testing.T) {
	a := weeklyRoutine("01C", []int{1}, 9, 0)
	b := weeklyRoutine("01A", []int{1}, 9, 15)
	c := weeklyRoutine("01B", []int{1}, 9, 30)

	now := time.Date(2026, 3, 2, 0, 45, 0, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 1, Hour: 9, Minute: 45}

	due := EvaluateDue(now, local, []*Routine{a, b, c})
	require.Len(t, due, 3)
	assert.Equal(t, []string{"01A", "01B", "01C"}, []string{due[0].ID, due[1].ID, due[2].ID})

	// Each occurrence carries its own cycleStart.
	assert.Equal(t, time.Date(2026, 3, 2, 0, 15, 0, 0, time.UTC), due[0].CycleStart)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC), due[1].CycleStart)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), due[2].CycleStart)
}

func TestEvaluateDue_MultipleDays(t *testing.T) {
	r := weeklyRoutine("01A", []int{1, 3, 5}, 9, 0)

	// Wednesday 09:30.
	now := time.Date(2026, 3, 4, 0, 30, 0, 0, time.UTC)
	local := timezone.LocalTime{DayOfWeek: 3, Hour: 9, Minute: 30}

	due := EvaluateDue(now, local, []*Routine{r})
	assert.Len(t, due, 1)

	// Thursday: not scheduled.
	local.DayOfWeek = 4
	assert.Empty(t, EvaluateDue(now, local, []*Routine{r}))
}
