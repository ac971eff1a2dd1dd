package auditlog

import "time"

const TypeTaskCreatedFromRoutine = "task_created_from_routine"

// Entry is an append-only audit record. Entries are only ever created and
// listed, never updated or deleted.
type Entry struct {
	ID        string            `yaml:"id"`
	Type      string            `yaml:"type"`
	Message   string            `yaml:"message"`
	Metadata  map[string]string `yaml:"metadata"`
	CreatedAt time.Time         `yaml:"created_at"`
}
