package exports

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Task is the stored state of one export. CSV is set once Status is done.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	RequestedBy *uuid.UUID `json:"requested_by,omitempty"`
	Status      Status     `json:"status"`
	Rows        int        `json:"rows"`
	Error       string     `json:"error,omitempty"`
	CSV         string     `json:"csv,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
