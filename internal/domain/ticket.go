package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// TicketPriority enumerates staff-assigned urgency.
type TicketPriority string

const (
	TicketPriorityNone   TicketPriority = "none"
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// SelectablePriorities are the levels offered on the priority control, in display order.
var SelectablePriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// ParsePriority accepts one of the selectable levels, case-insensitively.
func ParsePriority(raw string) (TicketPriority, bool) {
	candidate := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	for _, p := range SelectablePriorities {
		if p == candidate {
			return p, true
		}
	}
	return "", false
}

// Alerts reports whether the level triggers a priority-channel broadcast.
func (p TicketPriority) Alerts() bool {
	return p == TicketPriorityHigh || p == TicketPriorityUrgent
}

// Label is the selector text for the level.
func (p TicketPriority) Label() string {
	switch p {
	case TicketPriorityLow:
		return "Low 🟢"
	case TicketPriorityMedium:
		return "Medium 🟡"
	case TicketPriorityHigh:
		return "High 🔴"
	case TicketPriorityUrgent:
		return "Urgent ⚡"
	default:
		return "None"
	}
}

// Ticket is the aggregate for a single help request and its channel.
type Ticket struct {
	Number           int64
	ChannelID        snowflake.ID
	CreatorID        snowflake.ID
	Category         Category
	Title            string
	Body             string
	Priority         TicketPriority
	AssigneeID       *snowflake.ID
	Status           TicketStatus
	Rank             *string
	PaymentMethod    *string
	Transaction      *string
	Feedback         *string
	Rating           *int
	SummaryMessageID *snowflake.ID
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LockedAt         *time.Time
	ClosedAt         *time.Time
}

// ChannelName is the platform channel name derived from the ticket number.
func (t *Ticket) ChannelName() string {
	return ChannelNameFor(t.Number)
}

// DisplayNumber renders the zero-padded number used in titles.
func (t *Ticket) DisplayNumber() string {
	return fmt.Sprintf("#%04d", t.Number)
}

// ChannelNameFor renders ticket-0007 style names.
func ChannelNameFor(number int64) string {
	return fmt.Sprintf("ticket-%04d", number)
}

// Claimed reports whether a staff member currently owns the ticket.
func (t *Ticket) Claimed() bool {
	return t.AssigneeID != nil && *t.AssigneeID != 0
}

// ClaimedBy reports whether the given member owns the ticket.
func (t *Ticket) ClaimedBy(id snowflake.ID) bool {
	return t.Claimed() && *t.AssigneeID == id
}

// PaymentPending is true for rank purchases whose transaction details are not recorded yet.
func (t *Ticket) PaymentPending() bool {
	return t.Category == CategoryRank && t.Rank != nil && t.Transaction == nil
}

// Closed reports whether the ticket has been archived.
func (t *Ticket) Closed() bool {
	return t.Status == TicketStatusClosed
}

// Locked reports whether close has been initiated and the channel made read-only.
func (t *Ticket) Locked() bool {
	return t.LockedAt != nil
}
