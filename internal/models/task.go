package models

import "time"

// TaskKind identifies the behavior a task executes.
type TaskKind string

// Known task kinds. Unrecognized kinds run as TaskGeneric.
const (
	TaskSummarization TaskKind = "document_summarization"
	TaskMerge         TaskKind = "document_merge"
	TaskTranslation   TaskKind = "document_translation"
	TaskAnalysis      TaskKind = "document_analysis"
	TaskBatch         TaskKind = "batch_document_processing"
	TaskGeneric       TaskKind = "generic"
)

// TaskState is a task's position in the pending → processing → terminal state machine.
type TaskState string

// Task states. Completed, failed, and cancelled are terminal.
const (
	TaskPending    TaskState = "pending"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
	TaskCancelled  TaskState = "cancelled"
)

// Terminal reports whether no further transition can occur from s.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is a unit of deferred background work against one or more documents.
// Result is set only on completion, Error only on failure; both are empty
// while the task is non-terminal.
type Task struct {
	ID        string                 `json:"id" db:"id"`
	Kind      TaskKind               `json:"task_type" db:"task_type"`
	OwnerID   string                 `json:"user_id" db:"user_id"`
	Status    TaskState              `json:"status" db:"status"`
	Progress  float64                `json:"progress" db:"progress"`
	Result    map[string]interface{} `json:"result,omitempty" db:"result"`
	Error     string                 `json:"error,omitempty" db:"error"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Clone returns a shallow copy with its own Result map so callers cannot
// mutate the orchestrator's bookkeeping copy.
func (t *Task) Clone() *Task {
	c := *t
	if t.Result != nil {
		c.Result = make(map[string]interface{}, len(t.Result))
		for k, v := range t.Result {
			c.Result[k] = v
		}
	}
	return &c
}
