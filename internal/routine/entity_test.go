package routine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crewdeck/crewdeck/pkg/cerr"
)

func TestWeeklyScheduleValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule WeeklySchedule
		wantErr  bool
	}{
		{
			name:     "valid",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{1, 3, 5}, Hour: 9, Minute: 30},
		},
		{
			name:     "midnight",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{0}, Hour: 0, Minute: 0},
		},
		{
			name:     "end of day",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{6}, Hour: 23, Minute: 59},
		},
		{
			name:     "unknown type",
			schedule: WeeklySchedule{Type: "daily", DaysOfWeek: []int{1}, Hour: 9},
			wantErr:  true,
		},
		{
			name:     "empty days",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, Hour: 9},
			wantErr:  true,
		},
		{
			name:     "day out of range",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{7}, Hour: 9},
			wantErr:  true,
		},
		{
			name:     "negative day",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{-1}, Hour: 9},
			wantErr:  true,
		},
		{
			name:     "hour out of range",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{1}, Hour: 24},
			wantErr:  true,
		},
		{
			name:     "minute out of range",
			schedule: WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{1}, Hour: 9, Minute: 60},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if tt.wantErr {
				assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "expected invalid argument, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoutineValidate(t *testing.T) {
	valid := WeeklySchedule{Type: ScheduleTypeWeekly, DaysOfWeek: []int{1}, Hour: 9}

	assert.NoError(t, (&Routine{Title: "standup", Schedule: valid}).Validate())
	assert.Error(t, (&Routine{Schedule: valid}).Validate(), "empty title")
	assert.Error(t, (&Routine{Title: "standup", Priority: "asap", Schedule: valid}).Validate(), "bad priority")
}

func TestWeeklyScheduleMinuteOfDay(t *testing.T) {
	assert.Equal(t, 0, WeeklySchedule{}.MinuteOfDay())
	assert.Equal(t, 570, WeeklySchedule{Hour: 9, Minute: 30}.MinuteOfDay())
	assert.Equal(t, 1439, WeeklySchedule{Hour: 23, Minute: 59}.MinuteOfDay())
}
