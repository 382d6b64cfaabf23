package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/intake"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Close paths recorded on the closed event.
const (
	ClosePathFeedback = "feedback"
	ClosePathAdmin    = "admin"
)

// Lockdown strips Send from every overwrite except the bot's own and denies Send to
// @everyone, leaving visibility untouched.
func Lockdown(overwrites []platform.Overwrite, everyoneID, botID snowflake.ID) []platform.Overwrite {
	out := make([]platform.Overwrite, 0, len(overwrites)+1)
	sawEveryone := false
	for _, ow := range overwrites {
		if ow.Target == platform.TargetMember && ow.TargetID == botID {
			out = append(out, ow)
			continue
		}
		if ow.Target == platform.TargetRole && ow.TargetID == everyoneID {
			sawEveryone = true
		}
		ow.Allow &^= platform.PermSend
		ow.Deny |= platform.PermSend
		out = append(out, ow)
	}
	if !sawEveryone {
		out = append(out, platform.Overwrite{TargetID: everyoneID, Target: platform.TargetRole, Deny: platform.PermSend})
	}
	return out
}

// BeginClose locks the ticket channel and asks the creator for feedback.
func (s *TicketService) BeginClose(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*domain.Ticket, error) {
	if !actor.CanModerate() {
		return nil, apperrors.NewForbidden("You don't have permission to close tickets.")
	}
	ticket, channel, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ticket.Locked() {
		return nil, apperrors.NewConflict("This ticket is already being closed.", map[string]any{"ticket": ticket.Number})
	}

	locked := Lockdown(channel.Overwrites, s.guild.EveryoneRoleID(), s.guild.BotUserID())
	if err := s.guild.SetOverwrites(ctx, channelID, locked); err != nil {
		s.logger.Error("ticket lockdown failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := s.guild.SendMessage(ctx, channelID, platform.Message{
		Content: fmt.Sprintf("%s this ticket was closed by %s. Please leave feedback to finish closing it.",
			domain.UserMention(ticket.CreatorID), actor.Mention()),
		Rows: []platform.ActionRow{{Components: []platform.Component{{
			Kind:     platform.ComponentButton,
			CustomID: CustomFeedback,
			Label:    "Leave Feedback",
			Emoji:    "⭐",
			Style:    platform.StyleSuccess,
		}}}},
	}); err != nil {
		s.logger.Error("feedback prompt failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	// Lock only once the prompt exists; a locked ticket without one cannot be finished.
	now := s.now().UTC()
	if err := s.tickets.Lock(ctx, ticket.Number, now); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ticket.LockedAt = &now
	s.refreshSurface(ctx, ticket)

	s.logger.Info("ticket locked for close", zap.Int64("ticket", ticket.Number), zap.Stringer("staff", actor.ID))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeStatus,
		map[string]any{"status": ticket.Status}, map[string]any{"status": ticket.Status, "locked": true})
	s.publishEvent(ctx, events.EventTicketLocked, ticket, actor, nil)
	return ticket, nil
}

func (s *TicketService) feedbackTicket(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*domain.Ticket, error) {
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := requireCreator(ticket, actor, "Only the ticket creator can provide feedback and close the ticket."); err != nil {
		return nil, err
	}
	if !ticket.Locked() {
		return nil, apperrors.NewPreconditionFailed("This ticket has not been closed by staff yet.", map[string]any{"ticket": ticket.Number})
	}
	return ticket, nil
}

// CanLeaveFeedback checks the actor may open the feedback form.
func (s *TicketService) CanLeaveFeedback(ctx context.Context, actor domain.Actor, channelID snowflake.ID) error {
	_, err := s.feedbackTicket(ctx, actor, channelID)
	return err
}

// RecordFeedback validates the creator's rating and comments, closes the ticket, logs
// the feedback and schedules channel deletion. Invalid input has no side effects.
func (s *TicketService) RecordFeedback(ctx context.Context, actor domain.Actor, channelID snowflake.ID, values intake.Values) (*domain.Ticket, error) {
	ticket, err := s.feedbackTicket(ctx, actor, channelID)
	if err != nil {
		return nil, err
	}
	feedback, err := intake.ParseFeedback(values)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.tickets.CloseWithFeedback(ctx, ticket.Number, feedback.Rating, feedback.Comments, now); err != nil {
		return nil, closeError(ticket, err)
	}
	ticket.Rating = &feedback.Rating
	ticket.Feedback = &feedback.Comments
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	if err := s.archive(ctx, s.cfg.FeedbackChannelName, feedbackTopic, platform.Message{Embeds: []platform.Embed{{
		Title:       fmt.Sprintf("Feedback for Ticket %s", ticket.DisplayNumber()),
		Description: fmt.Sprintf("Rating: %d stars\nFeedback: %s", feedback.Rating, feedback.Comments),
		Color:       ColorBlue,
		Timestamp:   &now,
	}}}); err != nil {
		s.logger.Error("feedback log failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
	}

	if _, err := s.guild.SendMessage(ctx, channelID, platform.Message{
		Content: fmt.Sprintf("%s Thank you for your feedback. Ticket will be closed in %s.",
			domain.UserMention(ticket.CreatorID), humanDelay(s.cfg.CloseDelay())),
	}); err != nil {
		s.logger.Warn("feedback receipt failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
	}

	s.finishClose(ctx, ticket)
	s.logger.Info("ticket closed with feedback", zap.Int64("ticket", ticket.Number), zap.Int("rating", feedback.Rating))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeFeedback, nil,
		map[string]any{"rating": feedback.Rating, "feedback": feedback.Comments})
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeStatus,
		map[string]any{"status": domain.TicketStatusOpen}, map[string]any{"status": domain.TicketStatusClosed})
	s.publishEvent(ctx, events.EventFeedbackReceived, ticket, actor, events.FeedbackReceivedPayload{
		Rating:   feedback.Rating,
		Feedback: feedback.Comments,
	})
	s.publishEvent(ctx, events.EventTicketClosed, ticket, actor, events.TicketClosedPayload{Path: ClosePathFeedback})
	return ticket, nil
}

func closeError(ticket *domain.Ticket, err error) error {
	if errors.Is(err, repository.ErrTicketNotOpen) {
		return apperrors.NewConflict("This ticket is already closed.", map[string]any{"ticket": ticket.Number})
	}
	return apperrors.NewInternalError(err)
}

// TranscriptLine renders one message of a transcript.
func TranscriptLine(m platform.HistoryMessage) string {
	return fmt.Sprintf("%s - %s: %s", m.CreatedAt.UTC().Format(time.RFC3339), m.AuthorName, m.Content)
}

// AdminClose archives the full channel transcript, closes the ticket without feedback and
// schedules channel deletion.
func (s *TicketService) AdminClose(ctx context.Context, actor domain.Actor, channelID snowflake.ID) (*domain.Ticket, error) {
	if !actor.CanModerate() {
		return nil, apperrors.NewForbidden("You don't have permission to close tickets.")
	}
	ticket, _, err := s.resolveOpen(ctx, channelID)
	if err != nil {
		return nil, err
	}

	history, err := s.guild.History(ctx, channelID, 0)
	if err != nil {
		s.logger.Error("read ticket history failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, TranscriptLine(m))
	}
	transcript := strings.Join(lines, "\n")

	info, _ := ticket.Category.Info()
	claimedBy := "Unclaimed"
	if ticket.Claimed() {
		claimedBy = domain.UserMention(*ticket.AssigneeID)
	}
	preview := transcript
	if preview == "" {
		preview = "No messages."
	}
	now := s.now().UTC()
	if err := s.archive(ctx, s.cfg.LogsChannelName, logsTopic, platform.Message{
		Embeds: []platform.Embed{{
			Title:       fmt.Sprintf("Ticket %s Transcript", ticket.DisplayNumber()),
			Description: "Ticket has been closed and archived",
			Color:       ColorRed,
			Timestamp:   &now,
			Fields: []platform.EmbedField{
				{Name: "Category", Value: info.Name, Inline: true},
				{Name: "Created by", Value: domain.UserMention(ticket.CreatorID), Inline: true},
				{Name: "Claimed by", Value: claimedBy, Inline: true},
				{Name: "Closed by", Value: actor.Mention(), Inline: true},
				{Name: "Transcript", Value: Truncate(preview, embedFieldLimit)},
			},
		}},
		Files: []platform.File{{
			Name:        TranscriptFileName(ticket.Number),
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(transcript),
		}},
	}); err != nil {
		s.logger.Error("transcript log failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.tickets.Close(ctx, ticket.Number, now); err != nil {
		return nil, closeError(ticket, err)
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	s.finishClose(ctx, ticket)
	s.logger.Info("ticket closed by staff", zap.Int64("ticket", ticket.Number), zap.Stringer("staff", actor.ID), zap.Int("messages", len(lines)))
	s.recordHistory(ctx, ticket.Number, &actor.ID, domain.ChangeTypeStatus,
		map[string]any{"status": domain.TicketStatusOpen}, map[string]any{"status": domain.TicketStatusClosed, "path": ClosePathAdmin})
	s.publishEvent(ctx, events.EventTicketClosed, ticket, actor, events.TicketClosedPayload{
		Path:            ClosePathAdmin,
		TranscriptLines: len(lines),
	})
	return ticket, nil
}

// TranscriptFileName names the transcript attachment.
func TranscriptFileName(number int64) string {
	return "ticket-" + strconv.FormatInt(number, 10) + "-transcript.txt"
}

func (s *TicketService) finishClose(ctx context.Context, ticket *domain.Ticket) {
	if s.controls != nil {
		if err := s.controls.Clear(ctx, ticket.ChannelID); err != nil {
			s.logger.Warn("clear ticket controls failed", zap.Int64("ticket", ticket.Number), zap.Error(err))
		}
	}
	s.scheduleDeletion(ticket)
}

// CloseDelay is how long a closed ticket channel stays before deletion.
func (s *TicketService) CloseDelay() time.Duration {
	return s.cfg.CloseDelay()
}

func humanDelay(d time.Duration) string {
	secs := int(d / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}
