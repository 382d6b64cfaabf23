package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus      TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee    TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority    TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypePayment     TicketChangeType = "PAYMENT_CHANGE"
	ChangeTypeFeedback    TicketChangeType = "FEEDBACK"
	ChangeTypeStaffCalled TicketChangeType = "STAFF_CALLED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID           int64
	TicketNumber int64
	ChangedByID  *snowflake.ID
	ChangeType   TicketChangeType
	OldValue     map[string]any
	NewValue     map[string]any
	CreatedAt    time.Time
}
