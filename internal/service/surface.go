package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Component custom ids. call_staff_confirm carries ":<token>".
const (
	CustomCategorySelect      = "category_select"
	CustomRankSelect          = "rank_select"
	CustomPrioritySelect      = "priority_select"
	CustomCallStaff           = "call_staff"
	CustomCallStaffConfirm    = "call_staff_confirm"
	CustomClaim               = "claim_ticket"
	CustomClose               = "close_ticket"
	CustomFeedback            = "ticket_feedback"
	CustomPaymentMethod       = "payment_method_select"
	CustomPaymentID           = "payment_id"
	CustomPaymentQR           = "payment_qr"
	CustomCompleteTransaction = "complete_transaction"
)

// Embed colors.
const (
	ColorBlue   = 0x3498db
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorOrange = 0xe67e22
)

// selectOptionLimit is the most options a select menu may offer.
const selectOptionLimit = 25

// embedFieldLimit is the longest value an embed field may hold.
const embedFieldLimit = 1024

// Truncate shortens s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func priorityColor(p domain.TicketPriority) int {
	switch p {
	case domain.TicketPriorityLow:
		return ColorGreen
	case domain.TicketPriorityMedium:
		return ColorOrange
	case domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
		return ColorRed
	default:
		return ColorBlue
	}
}

// surfaceState is everything the summary message is rendered from.
type surfaceState struct {
	ticket    *domain.Ticket
	priority  domain.Control
	callStaff domain.Control
	methods   []domain.PaymentMethod
	prices    map[string]float64
}

func (s *TicketService) loadSurfaceState(ctx context.Context, ticket *domain.Ticket) (surfaceState, error) {
	state := surfaceState{
		ticket:    ticket,
		priority:  domain.NewControl(domain.ControlPriority),
		callStaff: domain.NewControl(domain.ControlCallStaff),
	}
	if s.controls != nil {
		if c, err := s.controls.Get(ctx, ticket.ChannelID, domain.ControlPriority); err == nil {
			state.priority = c
		} else {
			s.logger.Warn("load priority control failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		}
		if c, err := s.controls.Get(ctx, ticket.ChannelID, domain.ControlCallStaff); err == nil {
			state.callStaff = c
		} else {
			s.logger.Warn("load call-staff control failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		}
	}
	if ticket.PaymentPending() {
		methods, err := s.catalog.ListPaymentMethods(ctx)
		if err != nil {
			return state, err
		}
		state.methods = methods
		prices, err := s.catalog.ListPrices(ctx, *ticket.Rank)
		if err != nil {
			return state, err
		}
		state.prices = make(map[string]float64, len(prices))
		for _, p := range prices {
			state.prices[strings.ToLower(p.Method)] = p.Amount
		}
	}
	return state, nil
}

func (s *TicketService) renderSurface(ctx context.Context, ticket *domain.Ticket) (platform.Message, error) {
	state, err := s.loadSurfaceState(ctx, ticket)
	if err != nil {
		return platform.Message{}, err
	}
	return renderSummary(state), nil
}

// refreshSurface re-renders the summary message after a transition. Failures are logged;
// the transition itself already happened.
func (s *TicketService) refreshSurface(ctx context.Context, ticket *domain.Ticket) {
	if ticket.SummaryMessageID == nil {
		return
	}
	msg, err := s.renderSurface(ctx, ticket)
	if err == nil {
		err = s.guild.EditMessage(ctx, ticket.ChannelID, *ticket.SummaryMessageID, msg)
	}
	if err != nil {
		s.logger.Error("refresh ticket summary failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
	}
}

func renderSummary(state surfaceState) platform.Message {
	t := state.ticket
	info, _ := t.Category.Info()

	description := "A staff member will be with you shortly."
	if t.Transaction != nil {
		description = *t.Transaction + "\n\n" + description
	}
	if t.Locked() {
		description += "\n\nThis ticket is closing."
	}

	fields := []platform.EmbedField{
		{Name: "Created by", Value: domain.UserMention(t.CreatorID), Inline: true},
		{Name: "Type", Value: info.Name, Inline: true},
		{Name: "Category", Value: info.Name, Inline: true},
	}
	if t.Priority != "" && t.Priority != domain.TicketPriorityNone {
		fields = append(fields, platform.EmbedField{Name: "Priority", Value: t.Priority.Label(), Inline: true})
	}
	if t.Claimed() {
		fields = append(fields, platform.EmbedField{Name: "Claimed by", Value: domain.UserMention(*t.AssigneeID), Inline: true})
	}
	if t.Rank != nil {
		fields = append(fields, platform.EmbedField{Name: "Rank", Value: *t.Rank, Inline: true})
	}
	if t.PaymentMethod != nil {
		fields = append(fields, platform.EmbedField{Name: "Payment Method", Value: *t.PaymentMethod, Inline: true})
	}
	fields = append(fields, platform.EmbedField{Name: "Additional Information", Value: Truncate(t.Body, embedFieldLimit)})

	color := priorityColor(t.Priority)
	if t.Locked() {
		color = ColorRed
	}
	created := t.CreatedAt
	embed := platform.Embed{
		Title:       fmt.Sprintf("%s Ticket %s", info.Emoji, t.DisplayNumber()),
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   &created,
	}
	return platform.Message{Embeds: []platform.Embed{embed}, Rows: controlRows(state)}
}

func controlRows(state surfaceState) []platform.ActionRow {
	t := state.ticket
	locked := t.Locked() || t.Closed()

	priorityOptions := make([]platform.SelectOption, 0, len(domain.SelectablePriorities))
	for _, p := range domain.SelectablePriorities {
		priorityOptions = append(priorityOptions, platform.SelectOption{Label: p.Label(), Value: string(p)})
	}

	claim := platform.Component{Kind: platform.ComponentButton, CustomID: CustomClaim, Label: "Claim Ticket", Style: platform.StylePrimary, Disabled: locked}
	if t.Claimed() {
		claim.Label = "Unclaim Ticket"
		claim.Style = platform.StyleDanger
	}

	rows := []platform.ActionRow{
		{Components: []platform.Component{{
			Kind:        platform.ComponentSelect,
			CustomID:    CustomPrioritySelect,
			Placeholder: "Set ticket priority...",
			Options:     priorityOptions,
			Disabled:    locked || state.priority.Inert(),
		}}},
		{Components: []platform.Component{
			{Kind: platform.ComponentButton, CustomID: CustomCallStaff, Label: "Call Staff", Emoji: "📢", Style: platform.StylePrimary, Disabled: locked || state.callStaff.Inert()},
			claim,
			{Kind: platform.ComponentButton, CustomID: CustomClose, Label: "Close Ticket", Emoji: "🔒", Style: platform.StyleDanger, Disabled: locked},
		}},
	}

	if !t.PaymentPending() || locked {
		return rows
	}

	if len(state.methods) > 0 {
		options := make([]platform.SelectOption, 0, len(state.methods))
		for _, m := range state.methods {
			if len(options) == selectOptionLimit {
				break
			}
			opt := platform.SelectOption{Label: m.Name, Value: m.Name}
			if amount, ok := state.prices[strings.ToLower(m.Name)]; ok {
				opt.Description = fmt.Sprintf("%s: %.2f", *t.Rank, amount)
			}
			options = append(options, opt)
		}
		rows = append(rows, platform.ActionRow{Components: []platform.Component{{
			Kind:        platform.ComponentSelect,
			CustomID:    CustomPaymentMethod,
			Placeholder: "Select Payment Method...",
			Options:     options,
		}}})
	}
	rows = append(rows, platform.ActionRow{Components: []platform.Component{
		{Kind: platform.ComponentButton, CustomID: CustomPaymentQR, Label: "QR CODE", Style: platform.StylePrimary},
		{Kind: platform.ComponentButton, CustomID: CustomPaymentID, Label: "UPI ID", Style: platform.StylePrimary},
		{Kind: platform.ComponentButton, CustomID: CustomCompleteTransaction, Label: "Complete Transaction", Style: platform.StyleSuccess},
	}})
	return rows
}
