package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/intake"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const noAdditionalInfo = "No additional information provided."

// TicketService owns the lifecycle of ticket channels: creation, claiming, priority,
// staff calls, payment capture and closing.
type TicketService struct {
	tickets    repository.TicketRepository
	catalog    repository.CatalogRepository
	controls   repository.ControlRepository
	history    repository.TicketHistoryRepository
	guild      platform.Platform
	dispatcher events.Dispatcher
	scheduler  Scheduler
	logger     *zap.Logger
	cfg        config.TicketConfig
	payments   config.PaymentConfig
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CatalogRepo repository.CatalogRepository
	ControlRepo repository.ControlRepository
	HistoryRepo repository.TicketHistoryRepository
	Platform    platform.Platform
	Dispatcher  events.Dispatcher
	Scheduler   Scheduler
	Logger      *zap.Logger
	Tickets     config.TicketConfig
	Payments    config.PaymentConfig
}

// NewTicketService builds service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		catalog:    deps.CatalogRepo,
		controls:   deps.ControlRepo,
		history:    deps.HistoryRepo,
		guild:      deps.Platform,
		dispatcher: deps.Dispatcher,
		scheduler:  scheduler,
		logger:     logger,
		cfg:        deps.Tickets,
		payments:   deps.Payments,
		now:        time.Now,
	}
}

// Submit validates a creation form and opens the ticket.
func (s *TicketService) Submit(ctx context.Context, actor domain.Actor, formID string, values intake.Values) (*domain.Ticket, error) {
	req, err := intake.ParseSubmission(formID, values)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, actor, req)
}

// Create opens a private ticket channel for the requester. The row is written last, so a
// failure at any step leaves no ticket behind; a channel created before the failure is
// deleted again.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, req intake.Request) (*domain.Ticket, error) {
	info, ok := req.Category().Info()
	if !ok {
		info, _ = domain.CategorySupport.Info()
	}

	roles, err := s.roles(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	parent, err := s.ensureCategory(ctx, info.Name, roles)
	if err != nil {
		s.logger.Error("ensure ticket category failed", zap.String("category", info.Name), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	number, err := s.tickets.NextTicketNumber(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	channel, err := s.guild.CreateChannel(ctx, platform.ChannelSpec{
		Name:       domain.ChannelNameFor(number),
		Kind:       platform.KindText,
		ParentID:   parent.ID,
		Topic:      auth.FormatTopic(actor.Name, actor.ID),
		Overwrites: s.ticketOverwrites(roles, actor.ID, nil),
	})
	if err != nil {
		s.logger.Error("create ticket channel failed", zap.Int64("ticket", number), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	body := req.Summary()
	if body == "" {
		body = noAdditionalInfo
	}
	ticket := &domain.Ticket{
		Number:    number,
		ChannelID: channel.ID,
		CreatorID: actor.ID,
		Category:  info.Key,
		Title:     req.Title(),
		Body:      body,
		Priority:  domain.TicketPriorityNone,
		Status:    domain.TicketStatusOpen,
		CreatedAt: s.now().UTC(),
	}
	if purchase, ok := req.(intake.RankPurchase); ok {
		rank := purchase.Rank
		ticket.Rank = &rank
	}

	if err := s.finishCreate(ctx, ticket); err != nil {
		s.logger.Error("ticket creation failed; removing channel",
			zap.Int64("ticket", number), zap.Stringer("channel", channel.ID), zap.Error(err))
		if delErr := s.guild.DeleteChannel(ctx, channel.ID); delErr != nil {
			s.logger.Error("cleanup of ticket channel failed", zap.Stringer("channel", channel.ID), zap.Error(delErr))
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket", number),
		zap.String("category", string(ticket.Category)),
		zap.Stringer("creator", actor.ID))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeStatus, nil, map[string]any{"status": ticket.Status})
	s.publishEvent(ctx, events.EventTicketCreated, ticket, actor, events.TicketCreatedPayload{
		Category: ticket.Category,
		Title:    ticket.Title,
		Rank:     ticket.Rank,
	})
	return ticket, nil
}

func (s *TicketService) finishCreate(ctx context.Context, ticket *domain.Ticket) error {
	surface, err := s.renderSurface(ctx, ticket)
	if err != nil {
		return err
	}
	messageID, err := s.guild.SendMessage(ctx, ticket.ChannelID, surface)
	if err != nil {
		return err
	}
	ticket.SummaryMessageID = &messageID
	return s.tickets.Create(ctx, ticket)
}

// Get returns a ticket by number.
func (s *TicketService) Get(ctx context.Context, number int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"number": number})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

// List returns tickets matching filter, newest first.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// History returns the audit trail for a ticket.
func (s *TicketService) History(ctx context.Context, number int64) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, number); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, number)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// resolve loads the ticket bound to a channel and checks the channel topic still names
// the stored creator. Any mismatch aborts the action rather than guessing who the
// creator is.
func (s *TicketService) resolve(ctx context.Context, channelID snowflake.ID) (*domain.Ticket, *platform.Channel, error) {
	ticket, err := s.tickets.GetByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewPreconditionFailed("This command can only be used in a ticket channel.",
				map[string]any{"channel_id": channelID.String()})
		}
		return nil, nil, apperrors.NewInternalError(err)
	}

	channel, err := s.guild.Channel(ctx, channelID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	creator, err := auth.CreatorFromTopic(channel.Topic)
	if err != nil {
		s.logger.Warn("ticket topic unreadable", zap.Int64("ticket", ticket.Number), zap.Error(err))
		return nil, nil, apperrors.NewPreconditionFailed("This ticket's topic is missing or malformed, so its creator cannot be verified.",
			map[string]any{"ticket": ticket.Number})
	}
	if creator != ticket.CreatorID {
		s.logger.Warn("ticket topic names a different creator",
			zap.Int64("ticket", ticket.Number), zap.Stringer("topic_creator", creator), zap.Stringer("creator", ticket.CreatorID))
		return nil, nil, apperrors.NewPreconditionFailed("This ticket's topic does not match its creator.",
			map[string]any{"ticket": ticket.Number})
	}
	return ticket, channel, nil
}

func (s *TicketService) resolveOpen(ctx context.Context, channelID snowflake.ID) (*domain.Ticket, *platform.Channel, error) {
	ticket, channel, err := s.resolve(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.Closed() {
		return nil, nil, apperrors.NewConflict("This ticket is already closed.", map[string]any{"ticket": ticket.Number})
	}
	return ticket, channel, nil
}

func requireCreator(ticket *domain.Ticket, actor domain.Actor, message string) error {
	if actor.ID != ticket.CreatorID {
		return apperrors.NewForbidden(message)
	}
	return nil
}

type guildRoles struct {
	staff *platform.Role
	admin *platform.Role
}

func (s *TicketService) roles(ctx context.Context) (guildRoles, error) {
	staff, err := s.guild.RoleByName(ctx, s.cfg.StaffRoleName)
	if err != nil {
		return guildRoles{}, err
	}
	admin, err := s.guild.RoleByName(ctx, s.cfg.AdminRoleName)
	if err != nil {
		return guildRoles{}, err
	}
	return guildRoles{staff: staff, admin: admin}, nil
}

const (
	readWrite = platform.PermView | platform.PermSend | platform.PermReadHistory
	botPerms  = readWrite | platform.PermManageChannels | platform.PermAttachFiles
)

// ticketOverwrites is the visibility of a ticket channel: hidden from @everyone, open to
// the creator and the bot, and open to staff unless someone claimed the ticket, in which
// case staff can only read and the claimant can write.
func (s *TicketService) ticketOverwrites(roles guildRoles, creatorID snowflake.ID, claimant *snowflake.ID) []platform.Overwrite {
	out := []platform.Overwrite{
		{TargetID: s.guild.EveryoneRoleID(), Target: platform.TargetRole, Deny: platform.PermView},
		{TargetID: creatorID, Target: platform.TargetMember, Allow: readWrite},
		{TargetID: s.guild.BotUserID(), Target: platform.TargetMember, Allow: botPerms},
	}
	if roles.admin != nil {
		out = append(out, platform.Overwrite{TargetID: roles.admin.ID, Target: platform.TargetRole, Allow: readWrite})
	}
	if roles.staff != nil {
		staff := platform.Overwrite{TargetID: roles.staff.ID, Target: platform.TargetRole, Allow: readWrite}
		if claimant != nil {
			staff.Allow = platform.PermView | platform.PermReadHistory
			staff.Deny = platform.PermSend
		}
		out = append(out, staff)
	}
	if claimant != nil && *claimant != creatorID {
		out = append(out, platform.Overwrite{TargetID: *claimant, Target: platform.TargetMember, Allow: readWrite})
	}
	return out
}

func (s *TicketService) ensureCategory(ctx context.Context, name string, roles guildRoles) (*platform.Channel, error) {
	existing, err := s.guild.FindChannel(ctx, name, platform.KindCategory)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	overwrites := []platform.Overwrite{
		{TargetID: s.guild.EveryoneRoleID(), Target: platform.TargetRole, Deny: platform.PermView},
		{TargetID: s.guild.BotUserID(), Target: platform.TargetMember, Allow: botPerms},
	}
	if roles.admin != nil {
		overwrites = append(overwrites, platform.Overwrite{TargetID: roles.admin.ID, Target: platform.TargetRole, Allow: readWrite})
	}
	if roles.staff != nil {
		overwrites = append(overwrites, platform.Overwrite{TargetID: roles.staff.ID, Target: platform.TargetRole, Allow: readWrite})
	}
	s.logger.Info("creating ticket category", zap.String("category", name))
	return s.guild.CreateChannel(ctx, platform.ChannelSpec{Name: name, Kind: platform.KindCategory, Overwrites: overwrites})
}

// ensureTextChannel finds a log channel by name, creating it on first use.
func (s *TicketService) ensureTextChannel(ctx context.Context, name, topic string) (*platform.Channel, error) {
	existing, err := s.guild.FindChannel(ctx, name, platform.KindText)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	s.logger.Info("creating archive channel", zap.String("channel", name))
	return s.guild.CreateChannel(ctx, platform.ChannelSpec{Name: name, Kind: platform.KindText, Topic: topic})
}

func (s *TicketService) scheduleDeletion(ticket *domain.Ticket) {
	channelID := ticket.ChannelID
	number := ticket.Number
	s.scheduler.After(s.cfg.CloseDelay(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.guild.DeleteChannel(ctx, channelID); err != nil {
			s.logger.Warn("deferred ticket channel deletion failed",
				zap.Int64("ticket", number), zap.Stringer("channel", channelID), zap.Error(err))
			return
		}
		s.logger.Info("ticket channel deleted", zap.Int64("ticket", number), zap.Stringer("channel", channelID))
	})
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actor domain.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketNumber: ticket.Number,
		ChannelID:    ticket.ChannelID,
		Actor:        events.Actor{ID: actor.ID, Name: actor.Name},
		Timestamp:    s.now().UTC(),
		Payload:      payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event", string(eventType)), zap.Int64("ticket", ticket.Number), zap.Error(err))
	}
}

func (s *TicketService) recordHistory(ctx context.Context, number int64, actorID *snowflake.ID, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketNumber: number,
		ChangedByID:  actorID,
		ChangeType:   changeType,
		OldValue:     oldValue,
		NewValue:     newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history failed", zap.Int64("ticket", number), zap.String("change", string(changeType)), zap.Error(err))
	}
}
