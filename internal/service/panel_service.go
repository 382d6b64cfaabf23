package service

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// DefaultPanelText is the panel description until an administrator changes it.
const DefaultPanelText = "Need help? Choose your preferred method below to create a ticket!"

// panelSearchDepth is how many recent messages are searched for the panel.
const panelSearchDepth = 50

// PanelService renders the category panel and the rank selection step.
type PanelService struct {
	catalog *CatalogService
	guild   platform.Platform
	logger  *zap.Logger
}

// NewPanelService builds service.
func NewPanelService(catalog *CatalogService, guild platform.Platform, logger *zap.Logger) *PanelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanelService{catalog: catalog, guild: guild, logger: logger}
}

// CategorySelector is the category select menu row.
func CategorySelector() platform.ActionRow {
	infos := domain.Categories()
	options := make([]platform.SelectOption, 0, len(infos))
	for _, info := range infos {
		options = append(options, platform.SelectOption{
			Label:       info.Name,
			Value:       string(info.Key),
			Description: info.Description,
			Emoji:       info.Emoji,
		})
	}
	return platform.ActionRow{Components: []platform.Component{{
		Kind:        platform.ComponentSelect,
		CustomID:    CustomCategorySelect,
		Placeholder: "Select ticket category...",
		Options:     options,
	}}}
}

// Panel is the public message posted by ticket_setup.
func Panel(description string) platform.Message {
	if description == "" {
		description = DefaultPanelText
	}
	var listing string
	for i, info := range domain.Categories() {
		if i > 0 {
			listing += "\n"
		}
		listing += info.Emoji + " **" + info.Name + "** - " + info.Description
	}
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:       "🎫 Support Tickets",
			Description: description,
			Color:       ColorBlue,
			Fields:      []platform.EmbedField{{Name: "Available Categories", Value: listing}},
		}},
		Rows: []platform.ActionRow{CategorySelector()},
	}
}

// RankSelector builds the rank select step shown after choosing the rank category.
func (s *PanelService) RankSelector(ctx context.Context) (platform.Message, error) {
	ranks, err := s.catalog.ListRanks(ctx)
	if err != nil {
		return platform.Message{}, err
	}
	if len(ranks) == 0 {
		return platform.Message{}, apperrors.NewPreconditionFailed("No ranks are configured yet.", nil)
	}
	options := make([]platform.SelectOption, 0, len(ranks))
	for _, r := range ranks {
		if len(options) == selectOptionLimit {
			break
		}
		options = append(options, platform.SelectOption{Label: r.Name, Value: r.Name})
	}
	return platform.Message{
		Content: "Select your desired rank:",
		Rows: []platform.ActionRow{{Components: []platform.Component{{
			Kind:        platform.ComponentSelect,
			CustomID:    CustomRankSelect,
			Placeholder: "Select your rank...",
			Options:     options,
		}}}},
	}, nil
}

// UpdatePanelText rewrites the description of the newest panel posted by the bot among
// the channel's recent messages.
func (s *PanelService) UpdatePanelText(ctx context.Context, actor domain.Actor, channelID snowflake.ID, text string) error {
	if !actor.Admin {
		return apperrors.NewForbidden("Only administrators can edit the panel.")
	}
	if text == "" {
		return apperrors.NewValidationError("Panel text is required.", nil)
	}
	recent, err := s.guild.History(ctx, channelID, panelSearchDepth)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	bot := s.guild.BotUserID()
	for i := len(recent) - 1; i >= 0; i-- {
		m := recent[i]
		if m.AuthorID != bot || !m.HasEmbeds {
			continue
		}
		if err := s.guild.EditMessage(ctx, channelID, m.ID, Panel(text)); err != nil {
			s.logger.Error("panel edit failed", zap.Stringer("message", m.ID), zap.Error(err))
			return apperrors.NewInternalError(err)
		}
		s.logger.Info("panel updated", zap.Stringer("channel", channelID), zap.Stringer("message", m.ID))
		return nil
	}
	return apperrors.NewDomainError(apperrors.CodeNotFound, "Panel message not found.", http.StatusNotFound, nil)
}
