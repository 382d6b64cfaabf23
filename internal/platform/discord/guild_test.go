package discord

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

type fakeREST struct {
	messages  []*discordgo.Message // newest first
	pages     []int
	created   discordgo.GuildChannelCreateData
	edited    *discordgo.ChannelEdit
	editedMsg *discordgo.MessageEdit
	channels  []*discordgo.Channel
	roles     []*discordgo.Role
	roleCalls int
}

func (f *fakeREST) Guild(string, ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{OwnerID: "77"}, nil
}

func (f *fakeREST) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.roleCalls++
	return f.roles, nil
}

func (f *fakeREST) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeREST) GuildChannelCreateComplex(_ string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.created = data
	return &discordgo.Channel{ID: "500", Name: data.Name, Topic: data.Topic, ParentID: data.ParentID, PermissionOverwrites: data.PermissionOverwrites}, nil
}

func (f *fakeREST) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: id}, nil
}

func (f *fakeREST) ChannelEdit(_ string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.edited = data
	return &discordgo.Channel{}, nil
}

func (f *fakeREST) ChannelDelete(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: id}, nil
}

func (f *fakeREST) ChannelMessageSendComplex(string, *discordgo.MessageSend, ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "900"}, nil
}

func (f *fakeREST) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.editedMsg = m
	return &discordgo.Message{ID: m.ID}, nil
}

func (f *fakeREST) ChannelMessagePin(string, string, ...discordgo.RequestOption) error { return nil }

func (f *fakeREST) ChannelMessages(_ string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.pages = append(f.pages, limit)
	start := 0
	if beforeID != "" {
		for i, m := range f.messages {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.messages) {
		end = len(f.messages)
	}
	return f.messages[start:end], nil
}

func newTestGuild(t *testing.T, rest *fakeREST) *Guild {
	t.Helper()
	g, err := NewGuild(rest, "1000", "2000")
	require.NoError(t, err)
	return g
}

func TestHistoryPagesOldestFirst(t *testing.T) {
	rest := &fakeREST{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 250; i >= 1; i-- {
		rest.messages = append(rest.messages, &discordgo.Message{
			ID:        strconv.Itoa(i),
			Content:   "m" + strconv.Itoa(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Author:    &discordgo.User{ID: "3", Username: "alice"},
		})
	}
	g := newTestGuild(t, rest)

	all, err := g.History(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 250)
	assert.Equal(t, "m1", all[0].Content)
	assert.Equal(t, "m250", all[249].Content)
	assert.Equal(t, "alice", all[0].AuthorName)
	assert.Equal(t, []int{100, 100, 100}, rest.pages)

	rest.pages = nil
	recent, err := g.History(context.Background(), 10, 50)
	require.NoError(t, err)
	require.Len(t, recent, 50)
	assert.Equal(t, "m201", recent[0].Content)
	assert.Equal(t, []int{50}, rest.pages)
}

func TestCreateChannelMapsOverwrites(t *testing.T) {
	rest := &fakeREST{}
	g := newTestGuild(t, rest)

	ch, err := g.CreateChannel(context.Background(), platform.ChannelSpec{
		Name:     "ticket-0007",
		ParentID: 321,
		Topic:    "Ticket for alice (3)",
		Overwrites: []platform.Overwrite{
			{TargetID: 1000, Target: platform.TargetRole, Deny: platform.PermView},
			{TargetID: 3, Target: platform.TargetMember, Allow: platform.PermView | platform.PermSend},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, discordgo.ChannelTypeGuildText, rest.created.Type)
	assert.Equal(t, "321", rest.created.ParentID)
	require.Len(t, rest.created.PermissionOverwrites, 2)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), rest.created.PermissionOverwrites[0].Deny)
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, rest.created.PermissionOverwrites[1].Type)
	assert.Equal(t, int64(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages), rest.created.PermissionOverwrites[1].Allow)

	require.Len(t, ch.Overwrites, 2)
	assert.Equal(t, platform.PermView|platform.PermSend, ch.Overwrites[1].Allow)
	assert.Equal(t, "Ticket for alice (3)", ch.Topic)
}

func TestFindChannelAndRoles(t *testing.T) {
	rest := &fakeREST{
		channels: []*discordgo.Channel{
			{ID: "1", Name: "Bug Reports", Type: discordgo.ChannelTypeGuildCategory},
			{ID: "2", Name: "bug reports", Type: discordgo.ChannelTypeGuildText},
		},
		roles: []*discordgo.Role{{ID: "5", Name: "Staff"}},
	}
	g := newTestGuild(t, rest)
	ctx := context.Background()

	cat, err := g.FindChannel(ctx, "Bug Reports", platform.KindCategory)
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.EqualValues(t, 1, cat.ID)

	missing, err := g.FindChannel(ctx, "priority", platform.KindText)
	require.NoError(t, err)
	assert.Nil(t, missing)

	role, err := g.RoleByName(ctx, "Staff")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.EqualValues(t, 5, role.ID)

	none, err := g.RoleByName(ctx, "Admin")
	require.NoError(t, err)
	assert.Nil(t, none)

	owner, err := g.GuildOwnerID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 77, owner)
	assert.EqualValues(t, 1000, g.EveryoneRoleID())
	assert.EqualValues(t, 2000, g.BotUserID())
}

type fakeRoleCache struct {
	guilds map[string]*discordgo.Guild
}

func (c fakeRoleCache) Guild(id string) (*discordgo.Guild, error) {
	g, ok := c.guilds[id]
	if !ok {
		return nil, discordgo.ErrStateNotFound
	}
	return g, nil
}

func TestRoleByNameReadsGatewayState(t *testing.T) {
	rest := &fakeREST{roles: []*discordgo.Role{{ID: "5", Name: "Staff"}}}
	cache := fakeRoleCache{guilds: map[string]*discordgo.Guild{}}
	g := newTestGuild(t, rest).WithRoleCache(cache)
	ctx := context.Background()

	role, err := g.RoleByName(ctx, "Staff")
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, 1, rest.roleCalls, "uncached guild falls back to REST")

	cache.guilds["1000"] = &discordgo.Guild{ID: "1000", Roles: []*discordgo.Role{
		{ID: "6", Name: "Staff"},
		{ID: "7", Name: "Admin"},
	}}
	role, err = g.RoleByName(ctx, "Staff")
	require.NoError(t, err)
	assert.EqualValues(t, 6, role.ID)
	admin, err := g.RoleByName(ctx, "Admin")
	require.NoError(t, err)
	assert.EqualValues(t, 7, admin.ID)
	assert.Equal(t, 1, rest.roleCalls)
}

func TestEditMessageReplacesComponents(t *testing.T) {
	rest := &fakeREST{}
	g := newTestGuild(t, rest)

	err := g.EditMessage(context.Background(), 10, 11, platform.Message{
		Embeds: []platform.Embed{{Title: "Ticket", Fields: []platform.EmbedField{{Name: "a", Value: "b"}}}},
		Rows: []platform.ActionRow{{Components: []platform.Component{
			{Kind: platform.ComponentButton, CustomID: "claim_ticket", Label: "Claim", Style: platform.StyleSuccess, Emoji: "✋"},
			{Kind: platform.ComponentSelect, CustomID: "priority_select", Options: []platform.SelectOption{{Label: "Low", Value: "low"}}, Disabled: true},
		}}},
	})
	require.NoError(t, err)

	require.NotNil(t, rest.editedMsg.Components)
	rows := *rest.editedMsg.Components
	require.Len(t, rows, 1)
	row := rows[0].(discordgo.ActionsRow)
	button := row.Components[0].(discordgo.Button)
	assert.Equal(t, discordgo.SuccessButton, button.Style)
	assert.Equal(t, "✋", button.Emoji.Name)
	menu := row.Components[1].(discordgo.SelectMenu)
	assert.True(t, menu.Disabled)
	assert.Equal(t, "11", rest.editedMsg.ID)
	require.NotNil(t, rest.editedMsg.Embeds)
	assert.Len(t, *rest.editedMsg.Embeds, 1)
}
