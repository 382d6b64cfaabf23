// Package discord implements platform.Platform on top of discordgo.
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/snowflake"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// historyPage is the largest page the messages endpoint returns.
const historyPage = 100

// REST is the subset of *discordgo.Session the adapter calls.
type REST interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// RoleCache is the part of *discordgo.State role lookups read from. The gateway keeps
// it current through GUILD_CREATE and GUILD_ROLE_* events.
type RoleCache interface {
	Guild(guildID string) (*discordgo.Guild, error)
}

// Guild is the single guild the bot serves.
type Guild struct {
	rest    REST
	roles   RoleCache
	guildID snowflake.ID
	botID   snowflake.ID
}

// NewGuild binds the adapter to a guild. botID is the bot's own user id, known once the
// gateway session is ready.
func NewGuild(rest REST, guildID, botID string) (*Guild, error) {
	gid, err := snowflake.ParseString(guildID)
	if err != nil {
		return nil, fmt.Errorf("parse guild id: %w", err)
	}
	bid, err := snowflake.ParseString(botID)
	if err != nil {
		return nil, fmt.Errorf("parse bot id: %w", err)
	}
	return &Guild{rest: rest, guildID: gid, botID: bid}, nil
}

// WithRoleCache makes role lookups read the gateway state first and fall back to REST
// only while the guild has not been cached yet. Channels are always read over REST
// because overwrites are rewritten from what was read.
func (g *Guild) WithRoleCache(cache RoleCache) *Guild {
	g.roles = cache
	return g
}

var _ platform.Platform = (*Guild)(nil)

func (g *Guild) BotUserID() snowflake.ID { return g.botID }

// EveryoneRoleID is the guild id; Discord gives @everyone the guild's snowflake.
func (g *Guild) EveryoneRoleID() snowflake.ID { return g.guildID }

func (g *Guild) GuildOwnerID(ctx context.Context) (snowflake.ID, error) {
	guild, err := g.rest.Guild(g.guildID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return snowflake.ParseString(guild.OwnerID)
}

func (g *Guild) RoleByName(ctx context.Context, name string) (*platform.Role, error) {
	roles, err := g.guildRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.Name != name {
			continue
		}
		id, err := snowflake.ParseString(role.ID)
		if err != nil {
			return nil, err
		}
		return &platform.Role{ID: id, Name: role.Name}, nil
	}
	return nil, nil
}

func (g *Guild) guildRoles(ctx context.Context) ([]*discordgo.Role, error) {
	if g.roles != nil {
		if cached, err := g.roles.Guild(g.guildID.String()); err == nil && len(cached.Roles) > 0 {
			return cached.Roles, nil
		}
	}
	return g.rest.GuildRoles(g.guildID.String(), discordgo.WithContext(ctx))
}

func (g *Guild) Channel(ctx context.Context, id snowflake.ID) (*platform.Channel, error) {
	ch, err := g.rest.Channel(id.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return fromChannel(ch), nil
}

func (g *Guild) FindChannel(ctx context.Context, name string, kind platform.ChannelKind) (*platform.Channel, error) {
	channels, err := g.rest.GuildChannels(g.guildID.String(), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	want := channelType(kind)
	for _, ch := range channels {
		if ch.Type == want && strings.EqualFold(ch.Name, name) {
			return fromChannel(ch), nil
		}
	}
	return nil, nil
}

func (g *Guild) CreateChannel(ctx context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 channelType(spec.Kind),
		Topic:                spec.Topic,
		PermissionOverwrites: toOverwrites(spec.Overwrites),
	}
	if spec.ParentID != 0 {
		data.ParentID = spec.ParentID.String()
	}
	ch, err := g.rest.GuildChannelCreateComplex(g.guildID.String(), data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return fromChannel(ch), nil
}

func (g *Guild) DeleteChannel(ctx context.Context, id snowflake.ID) error {
	_, err := g.rest.ChannelDelete(id.String(), discordgo.WithContext(ctx))
	return err
}

func (g *Guild) SetOverwrites(ctx context.Context, channelID snowflake.ID, overwrites []platform.Overwrite) error {
	_, err := g.rest.ChannelEdit(channelID.String(), &discordgo.ChannelEdit{
		PermissionOverwrites: toOverwrites(overwrites),
	}, discordgo.WithContext(ctx))
	return err
}

func (g *Guild) SendMessage(ctx context.Context, channelID snowflake.ID, msg platform.Message) (snowflake.ID, error) {
	sent, err := g.rest.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     Embeds(msg.Embeds),
		Components: Components(msg.Rows),
		Files:      Files(msg.Files),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return snowflake.ParseString(sent.ID)
}

// EditMessage replaces content, embeds and components wholesale.
func (g *Guild) EditMessage(ctx context.Context, channelID, messageID snowflake.ID, msg platform.Message) error {
	content := msg.Content
	embeds := Embeds(msg.Embeds)
	components := Components(msg.Rows)
	_, err := g.rest.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID.String(),
		Channel:    channelID.String(),
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}

func (g *Guild) PinMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	return g.rest.ChannelMessagePin(channelID.String(), messageID.String(), discordgo.WithContext(ctx))
}

// History pages backwards from the newest message and returns the result oldest first.
func (g *Guild) History(ctx context.Context, channelID snowflake.ID, limit int) ([]platform.HistoryMessage, error) {
	var (
		collected []*discordgo.Message
		before    string
	)
	for limit <= 0 || len(collected) < limit {
		page := historyPage
		if limit > 0 && limit-len(collected) < page {
			page = limit - len(collected)
		}
		batch, err := g.rest.ChannelMessages(channelID.String(), page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		collected = append(collected, batch...)
		if len(batch) < page {
			break
		}
		before = batch[len(batch)-1].ID
	}

	out := make([]platform.HistoryMessage, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		out = append(out, fromMessage(collected[i]))
	}
	return out, nil
}
