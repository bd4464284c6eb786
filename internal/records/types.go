package records

import (
	"time"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
)

// #region status
// Status is the lifecycle state of an application.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)
// #endregion status

// #region application
// Application is the durable projection of one intake conversation.
type Application struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`
	intake.Snapshot
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
// #endregion application
