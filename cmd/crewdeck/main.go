package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/crewdeck/crewdeck/internal/client"
	"github.com/crewdeck/crewdeck/internal/routine"
	"github.com/crewdeck/crewdeck/internal/task"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

var (
	app       = kingpin.New("crewdeck", "Recurring routine scheduler for agent crews")
	serverURL = app.Flag("server", "Server URL").Default("http://localhost:3200").Envar("CREWDECK_SERVER_URL").String()
	apiKey    = app.Flag("api-key", "API key").Envar("CREWDECK_API_KEY").String()

	// Routine commands
	routineCmd = app.Command("routine", "Routine management commands")

	routineListCmd     = routineCmd.Command("list", "List routines")
	routineListEnabled = routineListCmd.Flag("enabled", "Only enabled routines").Bool()

	routineCreateCmd      = routineCmd.Command("create", "Create a routine")
	routineCreateTitle    = routineCreateCmd.Arg("title", "Routine title").Required().String()
	routineCreateDays     = routineCreateCmd.Flag("days", "Days of week (0=Sunday..6=Saturday)").Required().Ints()
	routineCreateHour     = routineCreateCmd.Flag("hour", "Hour of day (0-23)").Required().Int()
	routineCreateMinute   = routineCreateCmd.Flag("minute", "Minute of hour (0-59)").Default("0").Int()
	routineCreatePriority = routineCreateCmd.Flag("priority", "Task priority (low, normal, high, urgent)").Default("normal").String()
	routineCreateDesc     = routineCreateCmd.Flag("description", "Routine description").String()
	routineCreateColor    = routineCreateCmd.Flag("color", "Display color").String()

	routineShowCmd = routineCmd.Command("show", "Show routine details")
	routineShowID  = routineShowCmd.Arg("id", "Routine ID").Required().String()

	routineEnableCmd = routineCmd.Command("enable", "Enable a routine")
	routineEnableID  = routineEnableCmd.Arg("id", "Routine ID").Required().String()

	routineDisableCmd = routineCmd.Command("disable", "Disable a routine")
	routineDisableID  = routineDisableCmd.Arg("id", "Routine ID").Required().String()

	routineDeleteCmd = routineCmd.Command("delete", "Delete a routine")
	routineDeleteID  = routineDeleteCmd.Arg("id", "Routine ID").Required().String()

	routineDueCmd      = routineCmd.Command("due", "Show routines due right now")
	routineDueTimezone = routineDueCmd.Flag("timezone", "IANA timezone").Envar("CREWDECK_TIMEZONE").Default("UTC").String()

	routineTriggerCmd = routineCmd.Command("trigger", "Trigger a routine immediately")
	routineTriggerID  = routineTriggerCmd.Arg("id", "Routine ID").Required().String()

	// Task commands
	taskCmd = app.Command("task", "Task commands")

	taskListCmd    = taskCmd.Command("list", "List tasks")
	taskListStatus = taskListCmd.Flag("status", "Filter by status").String()
	taskListLimit  = taskListCmd.Flag("limit", "Max tasks to show").Default("50").Int()

	// Audit log
	auditCmd      = app.Command("audit", "Show the audit log")
	auditLimit    = auditCmd.Flag("limit", "Max entries to show").Default("50").Int()

	// Timezones
	timezoneCmd = app.Command("timezones", "List selectable timezones")
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	enabledColor  = color.New(color.FgGreen)
	disabledColor = color.New(color.FgHiBlack)
	errorColor    = color.New(color.FgRed)
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(*serverURL, *apiKey)

	var err error
	switch command {
	case routineListCmd.FullCommand():
		err = handleRoutineList(ctx, c)
	case routineCreateCmd.FullCommand():
		err = handleRoutineCreate(ctx, c)
	case routineShowCmd.FullCommand():
		err = handleRoutineShow(ctx, c, *routineShowID)
	case routineEnableCmd.FullCommand():
		err = handleRoutineSetEnabled(ctx, c, *routineEnableID, true)
	case routineDisableCmd.FullCommand():
		err = handleRoutineSetEnabled(ctx, c, *routineDisableID, false)
	case routineDeleteCmd.FullCommand():
		err = handleRoutineDelete(ctx, c, *routineDeleteID)
	case routineDueCmd.FullCommand():
		err = handleRoutineDue(ctx, c)
	case routineTriggerCmd.FullCommand():
		err = handleRoutineTrigger(ctx, c, *routineTriggerID)
	case taskListCmd.FullCommand():
		err = handleTaskList(ctx, c)
	case auditCmd.FullCommand():
		err = handleAudit(ctx, c)
	case timezoneCmd.FullCommand():
		err = handleTimezones(ctx, c)
	}
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var dayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func formatSchedule(s routine.ScheduleJSON) string {
	days := make([]string, 0, len(s.DaysOfWeek))
	for _, d := range s.DaysOfWeek {
		if d >= 0 && d < len(dayNames) {
			days = append(days, dayNames[d])
		}
	}
	return fmt.Sprintf("%s %02d:%02d", strings.Join(days, ","), s.Hour, s.Minute)
}

func handleRoutineList(ctx context.Context, c *client.Client) error {
	routines, err := c.ListRoutines(ctx, *routineListEnabled)
	if err != nil {
		return err
	}
	headerColor.Printf("%-27s %-30s %-20s %-8s %s\n", "ID", "TITLE", "SCHEDULE", "PRIORITY", "STATE")
	for _, rt := range routines {
		state := enabledColor.Sprint("enabled")
		if !rt.Enabled {
			state = disabledColor.Sprint("disabled")
		}
		fmt.Printf("%-27s %-30s %-20s %-8s %s\n", rt.ID, rt.Title, formatSchedule(rt.Schedule), rt.Priority, state)
	}
	return nil
}

func handleRoutineCreate(ctx context.Context, c *client.Client) error {
	rt, err := c.CreateRoutine(ctx, &client.CreateRoutineRequest{
		Title:       *routineCreateTitle,
		Description: *routineCreateDesc,
		Priority:    task.Priority(*routineCreatePriority),
		Schedule: routine.ScheduleJSON{
			Type:       routine.ScheduleTypeWeekly,
			DaysOfWeek: *routineCreateDays,
			Hour:       *routineCreateHour,
			Minute:     *routineCreateMinute,
		},
		Color: *routineCreateColor,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created routine %s (%s)\n", rt.ID, formatSchedule(rt.Schedule))
	return nil
}

func handleRoutineShow(ctx context.Context, c *client.Client, id string) error {
	rt, err := c.GetRoutine(ctx, id)
	if err != nil {
		return err
	}
	headerColor.Println(rt.Title)
	fmt.Printf("  ID:          %s\n", rt.ID)
	if rt.Description != "" {
		fmt.Printf("  Description: %s\n", rt.Description)
	}
	fmt.Printf("  Schedule:    %s\n", formatSchedule(rt.Schedule))
	fmt.Printf("  Priority:    %s\n", rt.Priority)
	fmt.Printf("  Enabled:     %t\n", rt.Enabled)
	if rt.LastTriggeredAt != nil {
		fmt.Printf("  Last fired:  %s\n", rt.LastTriggeredAt.Format(time.RFC3339))
	}
	fmt.Printf("  Created:     %s\n", rt.CreatedAt.Format(time.RFC3339))
	return nil
}

func handleRoutineSetEnabled(ctx context.Context, c *client.Client, id string, enabled bool) error {
	rt, err := c.UpdateRoutine(ctx, id, &client.UpdateRoutineRequest{Enabled: &enabled})
	if err != nil {
		return err
	}
	if rt.Enabled {
		fmt.Printf("Routine %s enabled\n", rt.ID)
	} else {
		fmt.Printf("Routine %s disabled\n", rt.ID)
	}
	return nil
}

func handleRoutineDelete(ctx context.Context, c *client.Client, id string) error {
	if err := c.DeleteRoutine(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Routine %s deleted\n", id)
	return nil
}

func handleRoutineDue(ctx context.Context, c *client.Client) error {
	loc, err := time.LoadLocation(*routineDueTimezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", *routineDueTimezone, err)
	}
	now := time.Now().UTC()
	due, err := c.DueRoutines(ctx, now, timezone.Localize(now, loc))
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Println("No routines due")
		return nil
	}
	headerColor.Printf("%-27s %-30s %s\n", "ID", "TITLE", "CYCLE START")
	for _, d := range due {
		fmt.Printf("%-27s %-30s %s\n", d.ID, d.Title, d.CycleStart.Format(time.RFC3339))
	}
	return nil
}

func handleRoutineTrigger(ctx context.Context, c *client.Client, id string) error {
	taskID, err := c.TriggerRoutine(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Routine %s triggered, created task %s\n", id, taskID)
	return nil
}

func handleTaskList(ctx context.Context, c *client.Client) error {
	tasks, total, err := c.ListTasks(ctx, *taskListStatus, *taskListLimit, 0)
	if err != nil {
		return err
	}
	headerColor.Printf("%-27s %-40s %-12s %s\n", "ID", "TITLE", "STATUS", "PRIORITY")
	for _, t := range tasks {
		fmt.Printf("%-27s %-40s %-12s %s\n", t.ID, t.Title, t.Status, t.Priority)
	}
	if total > len(tasks) {
		fmt.Printf("(%d of %d tasks shown)\n", len(tasks), total)
	}
	return nil
}

func handleAudit(ctx context.Context, c *client.Client) error {
	entries, _, err := c.ListAuditLog(ctx, *auditLimit, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-28s %s\n", e.CreatedAt.Format(time.RFC3339), e.Type, e.Message)
	}
	return nil
}

func handleTimezones(ctx context.Context, c *client.Client) error {
	zones, err := c.ListTimezones(ctx)
	if err != nil {
		return err
	}
	group := ""
	for _, z := range zones {
		if z.Group != group {
			group = z.Group
			headerColor.Println(group)
		}
		fmt.Printf("  %s\n", z.Value)
	}
	return nil
}
