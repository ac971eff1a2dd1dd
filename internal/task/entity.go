package task

import "time"

// Priority levels shared by tasks and the routine templates they are
// materialized from.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Status string

const (
	StatusInbox      Status = "inbox"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

type Task struct {
	ID              string            `yaml:"id"`
	Title           string            `yaml:"title"`
	Description     string            `yaml:"description"`
	Priority        Priority          `yaml:"priority"`
	Status          Status            `yaml:"status"`
	AssignedAgentID string            `yaml:"assigned_agent_id"`
	Metadata        map[string]string `yaml:"metadata"`
	CreatedAt       time.Time         `yaml:"created_at"`
	UpdatedAt       time.Time         `yaml:"updated_at"`
}
