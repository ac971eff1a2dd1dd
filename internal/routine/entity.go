package routine

import (
	"fmt"
	"time"

	"github.com/crewdeck/crewdeck/internal/task"
	"github.com/crewdeck/crewdeck/pkg/cerr"
)

const ScheduleTypeWeekly = "weekly"

// WeeklySchedule fires on a set of weekdays at a fixed local time.
// DaysOfWeek uses time.Weekday numbering (0 = Sunday).
type WeeklySchedule struct {
	Type       string `yaml:"type"`
	DaysOfWeek []int  `yaml:"days_of_week"`
	Hour       int    `yaml:"hour"`
	Minute     int    `yaml:"minute"`
}

// Validate rejects malformed schedules. It runs at create/update time so an
// invalid schedule is never persisted.
func (s WeeklySchedule) Validate() error {
	if s.Type != ScheduleTypeWeekly {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("unsupported schedule type %q", s.Type), nil)
	}
	if len(s.DaysOfWeek) == 0 {
		return cerr.NewError(cerr.InvalidArgument, "schedule daysOfWeek must not be empty", nil)
	}
	for _, d := range s.DaysOfWeek {
		if d < 0 || d > 6 {
			return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("schedule dayOfWeek %d out of range [0,6]", d), nil)
		}
	}
	if s.Hour < 0 || s.Hour > 23 {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("schedule hour %d out of range [0,23]", s.Hour), nil)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("schedule minute %d out of range [0,59]", s.Minute), nil)
	}
	return nil
}

// OnDay reports whether the schedule fires on the given weekday.
func (s WeeklySchedule) OnDay(dayOfWeek int) bool {
	for _, d := range s.DaysOfWeek {
		if d == dayOfWeek {
			return true
		}
	}
	return false
}

// MinuteOfDay returns the scheduled firing time as minutes since local midnight.
func (s WeeklySchedule) MinuteOfDay() int {
	return s.Hour*60 + s.Minute
}

// Routine is a weekly-recurring task template. LastTriggeredAt records only
// the most recent firing and is written exclusively by the trigger executor.
type Routine struct {
	ID              string         `yaml:"id"`
	Title           string         `yaml:"title"`
	Description     string         `yaml:"description"`
	Priority        task.Priority  `yaml:"priority"`
	Schedule        WeeklySchedule `yaml:"schedule"`
	Color           string         `yaml:"color"`
	Enabled         bool           `yaml:"enabled"`
	LastTriggeredAt *time.Time     `yaml:"last_triggered_at"`
	CreatedAt       time.Time      `yaml:"created_at"`
	UpdatedAt       time.Time      `yaml:"updated_at"`
}

func (r *Routine) Validate() error {
	if r.Title == "" {
		return cerr.NewError(cerr.InvalidArgument, "title must not be empty", nil)
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid priority %q", r.Priority), nil)
	}
	return r.Schedule.Validate()
}
