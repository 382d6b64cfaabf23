package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// ClaimOutcome reports what a claim-button press did.
type ClaimOutcome struct {
	Ticket  *domain.Ticket
	Claimed bool
}

// ToggleClaim is the claim button: it claims an unclaimed ticket, releases a ticket the
// actor holds (or any ticket, for administrators), and otherwise reports the claimant.
func (s *TicketService) ToggleClaim(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*ClaimOutcome, error) {
	if !actor.CanModerate() {
		return nil, apperrors.NewForbidden("You don't have permission to claim tickets.")
	}
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ticket.Claimed() && (ticket.ClaimedBy(actor.ID) || actor.Admin) {
		return s.unclaim(ctx, actor, ticket)
	}
	return s.claim(ctx, actor, ticket)
}

// Claim assigns the ticket to the actor.
func (s *TicketService) Claim(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*ClaimOutcome, error) {
	if !actor.CanModerate() {
		return nil, apperrors.NewForbidden("You don't have permission to claim tickets.")
	}
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return s.claim(ctx, actor, ticket)
}

// Unclaim releases the ticket. Only the claimant or an administrator may do so.
func (s *TicketService) Unclaim(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*ClaimOutcome, error) {
	if !actor.CanModerate() {
		return nil, apperrors.NewForbidden("You don't have permission to unclaim tickets.")
	}
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !ticket.Claimed() {
		return nil, apperrors.NewConflict("This ticket is not claimed.", map[string]any{"ticket": ticket.Number})
	}
	if !ticket.ClaimedBy(actor.ID) && !actor.Admin {
		return nil, apperrors.NewForbidden(fmt.Sprintf(
			"This ticket is claimed by %s. Only they or an administrator can unclaim it.", domain.UserMention(*ticket.AssigneeID)))
	}
	return s.unclaim(ctx, actor, ticket)
}

func (s *TicketService) claim(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) (*ClaimOutcome, error) {
	if ticket.Locked() {
		return nil, apperrors.NewConflict("This ticket is being closed.", map[string]any{"ticket": ticket.Number})
	}
	if ticket.Claimed() {
		claimant := *ticket.AssigneeID
		return nil, apperrors.NewConflict(
			fmt.Sprintf("This ticket is claimed by %s. Only they or an administrator can unclaim it.", domain.UserMention(claimant)),
			map[string]any{"claimant": claimant.String()})
	}
	if err := s.applyClaim(ctx, ticket, &actor.ID); err != nil {
		return nil, err
	}

	s.announce(ctx, ticket, platform.Embed{
		Title:       "Ticket Claimed",
		Description: fmt.Sprintf("This ticket has been claimed by %s", actor.Mention()),
		Color:       ColorGreen,
	})
	s.logger.Info("ticket claimed", zap.Int64("ticket", ticket.Number), zap.Stringer("staff", actor.ID))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeAssignee, map[string]any{"assignee": nil}, map[string]any{"assignee": actor.ID.String()})
	s.publishEvent(ctx, events.EventTicketAssigned, ticket, actor, events.TicketAssignedPayload{NewAssigneeID: &actor.ID})
	return &ClaimOutcome{Ticket: ticket, Claimed: true}, nil
}

func (s *TicketService) unclaim(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) (*ClaimOutcome, error) {
	previous := *ticket.AssigneeID
	if err := s.applyClaim(ctx, ticket, nil); err != nil {
		return nil, err
	}

	s.announce(ctx, ticket, platform.Embed{
		Title:       "Ticket Unclaimed",
		Description: fmt.Sprintf("This ticket has been unclaimed by %s", actor.Mention()),
		Color:       ColorOrange,
	})
	s.logger.Info("ticket unclaimed", zap.Int64("ticket", ticket.Number), zap.Stringer("staff", actor.ID), zap.Stringer("previous", previous))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeAssignee, map[string]any{"assignee": previous.String()}, map[string]any{"assignee": nil})
	s.publishEvent(ctx, events.EventTicketAssigned, ticket, actor, events.TicketAssignedPayload{OldAssigneeID: &previous})
	return &ClaimOutcome{Ticket: ticket, Claimed: false}, nil
}

// applyClaim rewrites channel visibility for the new claimant (nil releases the ticket),
// persists the assignee and refreshes the summary.
func (s *TicketService) applyClaim(ctx context.Context, ticket *domain.Ticket, claimant *snowflake.ID) error {
	roles, err := s.roles(ctx)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.guild.SetOverwrites(ctx, ticket.ChannelID, s.ticketOverwrites(roles, ticket.CreatorID, claimant)); err != nil {
		s.logger.Error("update ticket permissions failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	if err := s.tickets.Assign(ctx, ticket.Number, claimant); err != nil {
		return apperrors.NewInternalError(err)
	}
	ticket.AssigneeID = claimant
	s.refreshSurface(ctx, ticket)
	return nil
}

func (s *TicketService) announce(ctx context.Context, ticket *domain.Ticket, embed platform.Embed) {
	if _, err := s.guild.SendMessage(ctx, ticket.ChannelID, platform.Message{Embeds: []platform.Embed{embed}}); err != nil {
		s.logger.Warn("ticket announcement failed", zap.Int64("ticket", ticket.Number), zap.String("title", embed.Title), zap.Error(err))
	}
}

// PriorityOutcome reports a priority change.
type PriorityOutcome struct {
	Ticket    *domain.Ticket
	Broadcast bool
}

// SetPriority applies the one-time priority control. High and urgent levels are
// broadcast to the priority channel.
func (s *TicketService) SetPriority(ctx context.Context, actor domain.Actor, channelID snowflake.ID, raw string) (*PriorityOutcome, error) {
	if !actor.CanModerate() {
		return nil, apperrors.NewForbidden("You are not allowed to set priority.")
	}
	level, ok := domain.ParsePriority(raw)
	if !ok {
		return nil, apperrors.NewValidationError("Unknown priority level.", map[string]any{"priority": raw})
	}
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var before domain.Control
	taken, err := s.controls.Update(ctx, channelID, domain.ControlPriority, 0, func(current domain.Control) (domain.Control, error) {
		if !domain.CanTransition(domain.ControlPriority, current.State, domain.ControlUsed) {
			return current, errPriorityUsed
		}
		before = current
		return domain.Control{State: domain.ControlUsed}, nil
	})
	if errors.Is(err, errPriorityUsed) || errors.Is(err, repository.ErrControlContended) {
		return nil, apperrors.NewConflict("Priority has already been set for this ticket.", map[string]any{"ticket": ticket.Number})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	previous := ticket.Priority
	if err := s.tickets.UpdatePriority(ctx, ticket.Number, level); err != nil {
		s.restoreControl(ctx, channelID, domain.ControlPriority, taken, before, 0)
		return nil, apperrors.NewInternalError(err)
	}
	ticket.Priority = level

	s.announce(ctx, ticket, platform.Embed{
		Title:       "Priority Updated",
		Description: fmt.Sprintf("Ticket priority set to: %s", strings.ToUpper(string(level))),
		Color:       priorityColor(level),
	})
	s.refreshSurface(ctx, ticket)

	outcome := &PriorityOutcome{Ticket: ticket}
	if level.Alerts() {
		if err := s.broadcastPriority(ctx, ticket); err != nil {
			s.logger.Error("priority broadcast failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		} else {
			outcome.Broadcast = true
		}
	}

	s.logger.Info("ticket priority set", zap.Int64("ticket", ticket.Number), zap.String("priority", string(level)), zap.Stringer("staff", actor.ID))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypePriority,
		map[string]any{"priority": previous}, map[string]any{"priority": level})
	s.publishEvent(ctx, events.EventTicketPriorityChanged, ticket, actor, events.TicketPriorityChangedPayload{
		OldPriority: previous,
		NewPriority: level,
		Broadcast:   outcome.Broadcast,
	})
	return outcome, nil
}

var errPriorityUsed = errors.New("priority control used")

// PriorityAlert renders the broadcast line for a high or urgent ticket. Roles that do
// not exist are left out; the owner is always mentioned.
func PriorityAlert(ticket *domain.Ticket, staffRole, adminRole *platform.Role, ownerID snowflake.ID) string {
	var b strings.Builder
	if ticket.Priority == domain.TicketPriorityUrgent {
		fmt.Fprintf(&b, "⚡ Urgent Ticket %s", ticket.DisplayNumber())
	} else {
		fmt.Fprintf(&b, "🔴 High Priority Ticket %s", ticket.DisplayNumber())
	}
	b.WriteString(" " + domain.ChannelMention(ticket.ChannelID))
	if staffRole != nil {
		b.WriteString(" " + domain.RoleMention(staffRole.ID))
	}
	if ticket.Priority == domain.TicketPriorityUrgent && adminRole != nil {
		b.WriteString(" " + domain.RoleMention(adminRole.ID))
	}
	if ownerID != 0 {
		b.WriteString(" " + domain.UserMention(ownerID))
	}
	return b.String()
}

func (s *TicketService) broadcastPriority(ctx context.Context, ticket *domain.Ticket) error {
	roles, err := s.roles(ctx)
	if err != nil {
		return err
	}
	owner, err := s.guild.GuildOwnerID(ctx)
	if err != nil {
		return err
	}
	channel, err := s.ensureTextChannel(ctx, s.cfg.PriorityChannelName, "High and urgent ticket alerts")
	if err != nil {
		return err
	}
	_, err = s.guild.SendMessage(ctx, channel.ID, platform.Message{
		Content: PriorityAlert(ticket, roles.staff, roles.admin, owner),
	})
	return err
}

// RequestStaffAttention is the first phase of the call-staff control. It returns the
// token the confirmation must echo.
func (s *TicketService) RequestStaffAttention(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (string, error) {
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return "", err
	}
	if err := requireCreator(ticket, actor, "Only the ticket creator can call staff."); err != nil {
		return "", err
	}
	if ticket.Locked() {
		return "", apperrors.NewConflict("This ticket is being closed.", map[string]any{"ticket": ticket.Number})
	}

	token := uuid.NewString()
	_, err = s.controls.Update(ctx, channelID, domain.ControlCallStaff, s.cfg.ConfirmTTL(), func(current domain.Control) (domain.Control, error) {
		if !domain.CanTransition(domain.ControlCallStaff, current.State, domain.ControlPending) {
			return current, errStaffCalled
		}
		return domain.Control{State: domain.ControlPending, Token: token}, nil
	})
	if errors.Is(err, errStaffCalled) {
		return "", apperrors.NewConflict("Staff have already been called for this ticket.", map[string]any{"ticket": ticket.Number})
	}
	if errors.Is(err, repository.ErrControlContended) {
		return "", apperrors.NewConflict("Please try again.", map[string]any{"ticket": ticket.Number})
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return token, nil
}

var (
	errStaffCalled  = errors.New("staff already called")
	errStaleConfirm = errors.New("stale confirmation")
	errControlMoved = errors.New("control moved on")
)

// restoreControl rewinds a control to the state it had before this interaction took it,
// so a failed action can be retried. A control some other interaction has since moved
// is left alone.
func (s *TicketService) restoreControl(ctx context.Context, channelID snowflake.ID, kind domain.ControlKind, taken, before domain.Control, ttl time.Duration) {
	_, err := s.controls.Update(ctx, channelID, kind, ttl, func(current domain.Control) (domain.Control, error) {
		if current.State != taken.State || current.Token != taken.Token {
			return current, errControlMoved
		}
		return domain.Control{State: before.State, Token: before.Token}, nil
	})
	if err != nil {
		s.logger.Warn("control restore failed", zap.Stringer("channel", channelID), zap.String("control", string(kind)), zap.Error(err))
	}
}

// ConfirmStaffAttention completes the call-staff control: it pings the staff role,
// pins the ping and disables the control.
func (s *TicketService) ConfirmStaffAttention(ctx context.Context, actor domain.Actor, channelID snowflake.ID, token string) error {
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return err
	}
	if err := requireCreator(ticket, actor, "Only the ticket creator can confirm."); err != nil {
		return err
	}
	roles, err := s.roles(ctx)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if roles.staff == nil {
		return apperrors.NewPreconditionFailed("Staff role not found!", map[string]any{"role": s.cfg.StaffRoleName})
	}

	var before domain.Control
	taken, err := s.controls.Update(ctx, channelID, domain.ControlCallStaff, 0, func(current domain.Control) (domain.Control, error) {
		if current.State != domain.ControlPending || current.Token != token ||
			!domain.CanTransition(domain.ControlCallStaff, current.State, domain.ControlConfirmed) {
			return current, errStaleConfirm
		}
		before = current
		return domain.Control{State: domain.ControlConfirmed, Token: token}, nil
	})
	if errors.Is(err, errStaleConfirm) || errors.Is(err, repository.ErrControlContended) {
		return apperrors.NewConflict("This confirmation is no longer valid. Press Call Staff again.", map[string]any{"ticket": ticket.Number})
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	messageID, err := s.guild.SendMessage(ctx, channelID, platform.Message{
		Content: fmt.Sprintf("%s %s needs assistance!", domain.RoleMention(roles.staff.ID), actor.Mention()),
	})
	if err != nil {
		s.logger.Error("staff ping failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		s.restoreControl(ctx, channelID, domain.ControlCallStaff, taken, before, s.cfg.ConfirmTTL())
		return apperrors.NewInternalError(err)
	}
	pinned := true
	if err := s.guild.PinMessage(ctx, channelID, messageID); err != nil {
		pinned = false
		s.logger.Warn("failed to pin staff ping", zap.Int64("ticket", ticket.Number), zap.Error(err))
	}
	s.refreshSurface(ctx, ticket)

	s.logger.Info("staff called", zap.Int64("ticket", ticket.Number), zap.Stringer("creator", actor.ID))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeStaffCalled, nil, map[string]any{"message_id": messageID.String(), "pinned": pinned})
	s.publishEvent(ctx, events.EventStaffCalled, ticket, actor, events.StaffCalledPayload{MessageID: messageID, Pinned: pinned})
	return nil
}
