package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// TicketReader is the read side of the ticket service.
type TicketReader interface {
	Get(ctx context.Context, number int64) (*domain.Ticket, error)
	List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
	History(ctx context.Context, number int64) ([]domain.TicketHistory, error)
}

// TicketsHandler serves admin ticket search endpoints.
type TicketsHandler struct {
	tickets TicketReader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketReader) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// ListTickets GET /admin/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /admin/tickets/:number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), number)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// TicketHistory GET /admin/tickets/:number/history.
func (h *TicketsHandler) TicketHistory(c *fiber.Ctx) error {
	number, err := ticketNumber(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.History(c.UserContext(), number)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func ticketNumber(c *fiber.Ctx) (int64, error) {
	number, err := strconv.ParseInt(c.Params("number"), 10, 64)
	if err != nil || number <= 0 {
		return 0, apperrors.NewValidationError("ticket number must be a positive integer", nil)
	}
	return number, nil
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{}
	for _, part := range splitList(c.Query("category")) {
		category, ok := domain.ParseCategory(part)
		if !ok {
			return filter, apperrors.NewValidationError("unknown category", map[string]any{"category": part})
		}
		filter.Categories = append(filter.Categories, category)
	}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToLower(part)))
	}
	for _, part := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToLower(part)))
	}
	if raw := c.Query("creator_id"); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid creator_id", nil)
		}
		filter.CreatorID = &id
	}
	if raw := c.Query("assignee_id"); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid assignee_id", nil)
		}
		filter.AssigneeID = &id
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		Number:     ticket.Number,
		Channel:    ticket.ChannelName(),
		ChannelID:  ticket.ChannelID,
		CreatorID:  ticket.CreatorID,
		Category:   ticket.Category,
		Title:      ticket.Title,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		AssigneeID: ticket.AssigneeID,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Body:          ticket.Body,
		Rank:          ticket.Rank,
		PaymentMethod: ticket.PaymentMethod,
		Transaction:   ticket.Transaction,
		Rating:        ticket.Rating,
		Feedback:      ticket.Feedback,
		LockedAt:      ticket.LockedAt,
		ClosedAt:      ticket.ClosedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangedByID: entry.ChangedByID,
			ChangeType:  entry.ChangeType,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
