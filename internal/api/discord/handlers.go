package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/intake"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

func text(format string, args ...any) reply {
	return reply{msg: platform.Message{Content: fmt.Sprintf(format, args...)}}
}

func (r *Router) ticketSetup(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	if _, err := r.guild.SendMessage(ctx, req.channelID, service.Panel("")); err != nil {
		return reply{}, apperrors.NewInternalError(err)
	}
	return text("Ticket panel created!"), nil
}

func (r *Router) ticketCommand(_ context.Context, _ *request) (reply, error) {
	return reply{msg: platform.Message{
		Content: "Select a ticket category:",
		Rows:    []platform.ActionRow{service.CategorySelector()},
	}}, nil
}

func (r *Router) closeTicket(ctx context.Context, req *request) (reply, error) {
	ticket, err := r.tickets.AdminClose(ctx, req.actor, req.channelID)
	if err != nil {
		return reply{}, err
	}
	return text("Ticket %s closed. This channel will be deleted in %d seconds.",
		ticket.DisplayNumber(), int(r.tickets.CloseDelay().Seconds())), nil
}

func (r *Router) panelText(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	if err := r.panels.UpdatePanelText(ctx, req.actor, req.channelID, req.stringOption("message")); err != nil {
		return reply{}, err
	}
	return text("Panel message updated."), nil
}

func (r *Router) setPrices(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	amount, err := req.numberOption("price")
	if err != nil {
		return reply{}, err
	}
	price, err := r.catalog.SetPrice(ctx, req.stringOption("rank"), req.stringOption("method"), amount)
	if err != nil {
		return reply{}, err
	}
	return text("Price for %s via %s set to %.2f.", price.Rank, price.Method, price.Amount), nil
}

func (r *Router) addRank(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	name, err := r.catalog.AddRank(ctx, req.stringOption("rank"))
	if err != nil {
		return reply{}, err
	}
	return text("Rank %s added.", name), nil
}

func (r *Router) removeRank(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	name, err := r.catalog.RemoveRank(ctx, req.stringOption("rank"))
	if err != nil {
		return reply{}, err
	}
	return text("Rank %s removed.", name), nil
}

func (r *Router) addMethod(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	name, err := r.catalog.AddPaymentMethod(ctx, req.stringOption("method"))
	if err != nil {
		return reply{}, err
	}
	return text("Payment method %s added.", name), nil
}

func (r *Router) setPayment(ctx context.Context, req *request) (reply, error) {
	if err := requireAdmin(req.actor); err != nil {
		return reply{}, err
	}
	method, err := r.catalog.SetPaymentDetails(ctx, req.stringOption("method"), req.stringOption("id"), req.stringOption("qr"))
	if err != nil {
		return reply{}, err
	}
	return text("Payment details for %s updated.\nID: %s\nQR: %s", method.Name, method.Identifier, method.QR), nil
}

func (r *Router) selectCategory(ctx context.Context, req *request) (reply, error) {
	raw, err := req.firstValue()
	if err != nil {
		return reply{}, err
	}
	category, ok := domain.ParseCategory(raw)
	if !ok {
		return reply{}, apperrors.NewValidationError("Unknown ticket category.", map[string]any{"category": raw})
	}
	if category == domain.CategoryRank {
		msg, err := r.panels.RankSelector(ctx)
		if err != nil {
			return reply{}, err
		}
		return reply{msg: msg}, nil
	}
	form := intake.FormFor(category)
	return reply{form: &form}, nil
}

func (r *Router) selectRank(_ context.Context, req *request) (reply, error) {
	rank, err := req.firstValue()
	if err != nil {
		return reply{}, err
	}
	form := intake.RankForm(rank)
	return reply{form: &form}, nil
}

func (r *Router) selectPriority(ctx context.Context, req *request) (reply, error) {
	raw, err := req.firstValue()
	if err != nil {
		return reply{}, err
	}
	outcome, err := r.tickets.SetPriority(ctx, req.actor, req.channelID, raw)
	if err != nil {
		return reply{}, err
	}
	return text("Priority set to %s.", strings.ToUpper(string(outcome.Ticket.Priority))), nil
}

func (r *Router) callStaff(ctx context.Context, req *request) (reply, error) {
	token, err := r.tickets.RequestStaffAttention(ctx, req.actor, req.channelID)
	if err != nil {
		return reply{}, err
	}
	return reply{msg: platform.Message{
		Content: "Are you sure you want to call staff? This can only be done once.",
		Rows: []platform.ActionRow{{Components: []platform.Component{{
			Kind:     platform.ComponentButton,
			CustomID: service.CustomCallStaffConfirm + ":" + token,
			Label:    "Confirm",
			Style:    platform.StyleDanger,
		}}}},
	}}, nil
}

func (r *Router) confirmCallStaff(ctx context.Context, req *request) (reply, error) {
	if err := r.tickets.ConfirmStaffAttention(ctx, req.actor, req.channelID, req.param); err != nil {
		return reply{}, err
	}
	return text("Staff have been notified."), nil
}

func (r *Router) toggleClaim(ctx context.Context, req *request) (reply, error) {
	outcome, err := r.tickets.ToggleClaim(ctx, req.actor, req.channelID)
	if err != nil {
		return reply{}, err
	}
	if outcome.Claimed {
		return text("You have claimed ticket %s.", outcome.Ticket.DisplayNumber()), nil
	}
	return text("Ticket %s is no longer claimed.", outcome.Ticket.DisplayNumber()), nil
}

func (r *Router) beginClose(ctx context.Context, req *request) (reply, error) {
	if _, err := r.tickets.BeginClose(ctx, req.actor, req.channelID); err != nil {
		return reply{}, err
	}
	return text("Ticket locked. It will close once the creator leaves feedback."), nil
}

func (r *Router) openFeedback(ctx context.Context, req *request) (reply, error) {
	if err := r.tickets.CanLeaveFeedback(ctx, req.actor, req.channelID); err != nil {
		return reply{}, err
	}
	form := intake.FeedbackForm()
	return reply{form: &form}, nil
}

func (r *Router) selectPaymentMethod(ctx context.Context, req *request) (reply, error) {
	raw, err := req.firstValue()
	if err != nil {
		return reply{}, err
	}
	method, err := r.tickets.SelectPaymentMethod(ctx, req.actor, req.channelID, raw)
	if err != nil {
		return reply{}, err
	}
	return text("Payment method set to %s.", method.Name), nil
}

func (r *Router) paymentID(ctx context.Context, req *request) (reply, error) {
	id, err := r.tickets.PaymentIdentifier(ctx, req.actor, req.channelID)
	if err != nil {
		return reply{}, err
	}
	return text("%s ID: `%s`", id.Method, id.Identifier), nil
}

func (r *Router) paymentQR(ctx context.Context, req *request) (reply, error) {
	qr, err := r.tickets.PaymentQRCode(ctx, req.actor, req.channelID)
	if err != nil {
		return reply{}, err
	}
	if qr.URL != "" {
		return text("Scan this QR code to pay via %s:\n%s", qr.Method, qr.URL), nil
	}
	return reply{msg: platform.Message{
		Content: fmt.Sprintf("Scan this QR code to pay via %s:", qr.Method),
		Files:   []platform.File{*qr.File},
	}}, nil
}

func (r *Router) openTransaction(ctx context.Context, req *request) (reply, error) {
	if err := r.tickets.CanCompleteTransaction(ctx, req.actor, req.channelID); err != nil {
		return reply{}, err
	}
	form := intake.TransactionForm()
	return reply{form: &form}, nil
}

func (r *Router) submitTicket(ctx context.Context, req *request) (reply, error) {
	formID := req.interaction.ModalSubmitData().CustomID
	ticket, err := r.tickets.Submit(ctx, req.actor, formID, req.form)
	if err != nil {
		return reply{}, err
	}
	return text("Ticket created: %s", domain.ChannelMention(ticket.ChannelID)), nil
}

func (r *Router) submitTransaction(ctx context.Context, req *request) (reply, error) {
	if _, err := r.tickets.RecordTransaction(ctx, req.actor, req.channelID, req.form); err != nil {
		return reply{}, err
	}
	return text("Transaction details recorded. Staff will verify your payment shortly."), nil
}

func (r *Router) submitFeedback(ctx context.Context, req *request) (reply, error) {
	if _, err := r.tickets.RecordFeedback(ctx, req.actor, req.channelID, req.form); err != nil {
		return reply{}, err
	}
	return text("Thank you for your feedback!"), nil
}
