package events

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventStaffCalled           EventType = "ticket_staff_called"
	EventPaymentMethodSelected EventType = "ticket_payment_method_selected"
	EventTransactionRecorded   EventType = "ticket_transaction_recorded"
	EventTicketLocked          EventType = "ticket_locked"
	EventFeedbackReceived      EventType = "ticket_feedback_received"
	EventTicketClosed          EventType = "ticket_closed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string       `json:"id"`
	Type         EventType    `json:"type"`
	TicketNumber int64        `json:"ticket_number"`
	ChannelID    snowflake.ID `json:"channel_id"`
	Actor        Actor        `json:"actor"`
	Timestamp    time.Time    `json:"timestamp"`
	Payload      interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category domain.Category `json:"category"`
	Title    string          `json:"title"`
	Rank     *string         `json:"rank,omitempty"`
}

// TicketAssignedPayload payload. A nil assignee means the ticket was released.
type TicketAssignedPayload struct {
	OldAssigneeID *snowflake.ID `json:"old_assignee_id,omitempty"`
	NewAssigneeID *snowflake.ID `json:"new_assignee_id,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Broadcast   bool                  `json:"broadcast"`
}

// StaffCalledPayload payload.
type StaffCalledPayload struct {
	MessageID snowflake.ID `json:"message_id"`
	Pinned    bool         `json:"pinned"`
}

// PaymentMethodSelectedPayload payload.
type PaymentMethodSelectedPayload struct {
	Method string `json:"method"`
}

// TransactionRecordedPayload payload.
type TransactionRecordedPayload struct {
	Record string `json:"record"`
}

// FeedbackReceivedPayload payload.
type FeedbackReceivedPayload struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Path            string `json:"path"`
	TranscriptLines int    `json:"transcript_lines,omitempty"`
}
