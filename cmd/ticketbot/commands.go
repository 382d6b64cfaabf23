package main

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-bot/internal/api/discord"
)

func syncCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-commands",
		Short: "Overwrite the guild's slash commands and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if cfg.Discord.Token == "" || cfg.Discord.GuildID == "" {
				return errors.New("DISCORD_TOKEN and DISCORD_GUILD_ID are required")
			}
			session, err := discordgo.New("Bot " + cfg.Discord.Token)
			if err != nil {
				return fmt.Errorf("create discord session: %w", err)
			}
			appID := cfg.Discord.ApplicationID
			if appID == "" {
				me, err := session.User("@me", discordgo.WithContext(cmd.Context()))
				if err != nil {
					return fmt.Errorf("resolve bot user: %w", err)
				}
				appID = me.ID
			}
			return discord.SyncCommands(cmd.Context(), session, appID, cfg.Discord.GuildID, logger)
		},
	}
}
