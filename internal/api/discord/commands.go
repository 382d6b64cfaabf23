package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Slash command names.
const (
	CommandTicketSetup = "ticket_setup"
	CommandTicket      = "ticket"
	CommandCloseTicket = "closeticket"
	CommandPanelText   = "pannelmsg"
	CommandSetPrices   = "setprices"
	CommandAddRank     = "addrank"
	CommandRemoveRank  = "removerank"
	CommandAddMethod   = "addmethod"
	CommandSetPayment  = "setpaymet"
)

// Commands is the slash command set registered for the guild.
func Commands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	minPrice := 0.0
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandTicketSetup,
			Description:              "Post the ticket panel in this channel",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:        CommandTicket,
			Description: "Open a new ticket",
		},
		{
			Name:        CommandCloseTicket,
			Description: "Close this ticket and archive its transcript",
		},
		{
			Name:                     CommandPanelText,
			Description:              "Change the ticket panel message",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "New panel text", Required: true, MaxLength: 4000},
			},
		},
		{
			Name:                     CommandSetPrices,
			Description:              "Set the price of a rank for a payment method",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "rank", Description: "Rank name", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "method", Description: "Payment method", Required: true},
				{Type: discordgo.ApplicationCommandOptionNumber, Name: "price", Description: "Price", Required: true, MinValue: &minPrice},
			},
		},
		{
			Name:                     CommandAddRank,
			Description:              "Add a purchasable rank",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "rank", Description: "Rank name", Required: true, MaxLength: 100},
			},
		},
		{
			Name:                     CommandRemoveRank,
			Description:              "Remove a purchasable rank",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "rank", Description: "Rank name", Required: true},
			},
		},
		{
			Name:                     CommandAddMethod,
			Description:              "Add a payment method",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "method", Description: "Payment method name", Required: true, MaxLength: 100},
			},
		},
		{
			Name:                     CommandSetPayment,
			Description:              "Set the payee id and QR code of a payment method",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "method", Description: "Payment method", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Payee id shown to buyers"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "qr", Description: "QR image URL or file path"},
			},
		},
	}
}

// CommandRegistrar is the part of *discordgo.Session used to publish commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// SyncCommands replaces the guild's command set with Commands.
func SyncCommands(ctx context.Context, registrar CommandRegistrar, appID, guildID string, logger *zap.Logger) error {
	created, err := registrar.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	logger.Info("slash commands synced", zap.String("guild", guildID), zap.Int("commands", len(created)))
	return nil
}
