package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/intake"
	"github.com/spec-kit/ticket-bot/internal/platform"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const qrSize = 256

const (
	logsTopic     = "Ticket transcripts and logs"
	feedbackTopic = "Ticket feedback"
)

// PaymentID is what the payment-id button shows.
type PaymentID struct {
	Method     string
	Identifier string
}

// PaymentQR is what the QR button shows: a link to a hosted image or an attachment.
type PaymentQR struct {
	Method string
	URL    string
	File   *platform.File
}

// paymentTicket resolves an open rank ticket whose payment is still pending and checks
// the actor created it.
func (s *TicketService) paymentTicket(ctx context.Context, actor domain.Actor, channelID snowflake.ID, denied string) (*domain.Ticket, error) {
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := requireCreator(ticket, actor, denied); err != nil {
		return nil, err
	}
	if ticket.Category != domain.CategoryRank || ticket.Rank == nil {
		return nil, apperrors.NewPreconditionFailed("This ticket has no payment to make.", map[string]any{"ticket": ticket.Number})
	}
	if ticket.Transaction != nil {
		return nil, apperrors.NewConflict("Transaction details were already recorded.", map[string]any{"ticket": ticket.Number})
	}
	if ticket.Locked() {
		return nil, apperrors.NewConflict("This ticket is being closed.", map[string]any{"ticket": ticket.Number})
	}
	return ticket, nil
}

// SelectPaymentMethod records the method the buyer intends to pay with.
func (s *TicketService) SelectPaymentMethod(ctx context.Context, actor domain.Actor, channelID snowflake.ID, name string) (*domain.PaymentMethod, error) {
	ticket, err := s.paymentTicket(ctx, actor, channelID, "Only the ticket creator can select a payment method.")
	if err != nil {
		return nil, err
	}
	method, err := s.catalog.GetPaymentMethod(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("Unknown payment method.", map[string]any{"method": name})
		}
		return nil, apperrors.NewInternalError(err)
	}

	previous := ticket.PaymentMethod
	if err := s.tickets.StorePaymentMethod(ctx, ticket.Number, method.Name); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.PaymentMethod = &method.Name
	s.refreshSurface(ctx, ticket)

	s.logger.Info("payment method selected", zap.Int64("ticket", ticket.Number), zap.String("method", method.Name))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypePayment,
		map[string]any{"payment_method": previous}, map[string]any{"payment_method": method.Name})
	s.publishEvent(ctx, events.EventPaymentMethodSelected, ticket, actor, events.PaymentMethodSelectedPayload{Method: method.Name})
	return method, nil
}

// selectedMethod returns the ticket's chosen method; nil when none was chosen or it was
// removed from the catalog since.
func (s *TicketService) selectedMethod(ctx context.Context, ticket *domain.Ticket) (*domain.PaymentMethod, error) {
	if ticket.PaymentMethod == nil {
		return nil, nil
	}
	method, err := s.catalog.GetPaymentMethod(ctx, *ticket.PaymentMethod)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return method, err
}

// PaymentIdentifier returns the payee id for the selected method, falling back to the
// configured default.
func (s *TicketService) PaymentIdentifier(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*PaymentID, error) {
	ticket, err := s.paymentTicket(ctx, actor, channelID, "Only the ticket creator can view this.")
	if err != nil {
		return nil, err
	}
	method, err := s.selectedMethod(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	out := &PaymentID{Method: "UPI", Identifier: s.payments.DefaultID}
	if method != nil {
		out.Method = method.Name
		if method.HasIdentifier() {
			out.Identifier = method.Identifier
		}
	}
	if strings.TrimSpace(out.Identifier) == "" {
		out.Identifier = domain.NotSetYet
	}
	return out, nil
}

// PaymentQRCode returns the QR for the selected method: a configured link or file,
// the configured fallback file, or a code generated from the payee id.
func (s *TicketService) PaymentQRCode(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*PaymentQR, error) {
	ticket, err := s.paymentTicket(ctx, actor, channelID, "Only the ticket creator can view this.")
	if err != nil {
		return nil, err
	}
	method, err := s.selectedMethod(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	out := &PaymentQR{Method: "UPI"}
	identifier := s.payments.DefaultID
	if method != nil {
		out.Method = method.Name
		if method.HasQR() {
			qr := strings.TrimSpace(method.QR)
			if strings.HasPrefix(qr, "http://") || strings.HasPrefix(qr, "https://") {
				out.URL = qr
				return out, nil
			}
			if file, err := readQRFile(qr); err == nil {
				out.File = file
				return out, nil
			}
			s.logger.Warn("configured QR file unreadable", zap.String("method", method.Name), zap.String("path", qr))
		}
		if method.HasIdentifier() {
			identifier = method.Identifier
		}
	}

	if s.payments.QRPath != "" {
		if file, err := readQRFile(s.payments.QRPath); err == nil {
			out.File = file
			return out, nil
		}
		s.logger.Warn("fallback QR file unreadable", zap.String("path", s.payments.QRPath))
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || identifier == domain.NotSetYet {
		return nil, apperrors.NewPreconditionFailed("No payment QR code is configured.", map[string]any{"method": out.Method})
	}
	png, err := qrcode.Encode(PaymentURI(out.Method, identifier), qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	out.File = &platform.File{Name: "payment_qr.png", ContentType: "image/png", Data: png}
	return out, nil
}

// PaymentURI is the payload encoded into a generated QR code.
func PaymentURI(method, identifier string) string {
	if strings.EqualFold(method, "UPI") {
		return "upi://pay?pa=" + identifier
	}
	return identifier
}

func readQRFile(path string) (*platform.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &platform.File{Name: "payment_qr.png", ContentType: "image/png", Data: data}, nil
}

// CanCompleteTransaction checks the actor may open the transaction form.
func (s *TicketService) CanCompleteTransaction(ctx context.Context, actor domain.Actor, channelID snowflake.ID) error {
	_, err := s.paymentTicket(ctx, actor, channelID, "Only the ticket creator can complete the transaction.")
	return err
}

// RecordTransaction stores submitted payment proof, surfaces it at the top of the
// summary, drops the payment controls and logs it to the archive channel.
func (s *TicketService) RecordTransaction(ctx context.Context, actor domain.Actor, channelID snowflake.ID, values intake.Values) (*domain.Ticket, error) {
	ticket, err := s.paymentTicket(ctx, actor, channelID, "Only the ticket creator can complete the transaction.")
	if err != nil {
		return nil, err
	}
	tx, err := intake.ParseTransaction(values)
	if err != nil {
		return nil, err
	}

	record := tx.Record()
	if err := s.tickets.StoreTransaction(ctx, ticket.Number, record); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.Transaction = &record
	s.refreshSurface(ctx, ticket)

	now := s.now().UTC()
	if err := s.archive(ctx, s.cfg.LogsChannelName, logsTopic, platform.Message{Embeds: []platform.Embed{{
		Title:       fmt.Sprintf("Transaction Details for Ticket %s", ticket.DisplayNumber()),
		Description: record,
		Color:       ColorGreen,
		Timestamp:   &now,
	}}}); err != nil {
		s.logger.Error("transaction log failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
	}

	s.logger.Info("transaction recorded", zap.Int64("ticket", ticket.Number))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypePayment,
		map[string]any{"transaction": nil}, map[string]any{"transaction": record})
	s.publishEvent(ctx, events.EventTransactionRecorded, ticket, actor, events.TransactionRecordedPayload{Record: record})
	return ticket, nil
}

// archive posts to a log channel, creating it on first use.
func (s *TicketService) archive(ctx context.Context, channelName, topic string, msg platform.Message) error {
	channel, err := s.ensureTextChannel(ctx, channelName, topic)
	if err != nil {
		return err
	}
	_, err = s.guild.SendMessage(ctx, channel.ID, msg)
	return err
}
