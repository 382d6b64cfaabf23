package dto

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	Number     int64                 `json:"number"`
	Channel    string                `json:"channel"`
	ChannelID  snowflake.ID          `json:"channel_id"`
	CreatorID  snowflake.ID          `json:"creator_id"`
	Category   domain.Category       `json:"category"`
	Title      string                `json:"title"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	AssigneeID *snowflake.ID         `json:"assignee_id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Body          string     `json:"body"`
	Rank          *string    `json:"rank,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	Transaction   *string    `json:"transaction,omitempty"`
	Rating        *int       `json:"rating,omitempty"`
	Feedback      *string    `json:"feedback,omitempty"`
	LockedAt      *time.Time `json:"locked_at"`
	ClosedAt      *time.Time `json:"closed_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          int64                   `json:"id"`
	ChangedByID *snowflake.ID           `json:"changed_by_id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}
