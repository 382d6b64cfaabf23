package discord

import (
	"bytes"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/snowflake"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

var permissionBits = []struct {
	local  platform.Permission
	remote int64
}{
	{platform.PermView, discordgo.PermissionViewChannel},
	{platform.PermSend, discordgo.PermissionSendMessages},
	{platform.PermManageChannels, discordgo.PermissionManageChannels},
	{platform.PermReadHistory, discordgo.PermissionReadMessageHistory},
	{platform.PermAttachFiles, discordgo.PermissionAttachFiles},
}

// ToPermissionBits maps local permission flags onto Discord's bit set.
func ToPermissionBits(p platform.Permission) int64 {
	var out int64
	for _, bit := range permissionBits {
		if p.Has(bit.local) {
			out |= bit.remote
		}
	}
	return out
}

// FromPermissionBits keeps only the Discord bits the workflow models.
func FromPermissionBits(bits int64) platform.Permission {
	var out platform.Permission
	for _, bit := range permissionBits {
		if bits&bit.remote == bit.remote {
			out |= bit.local
		}
	}
	return out
}

func toOverwrites(in []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		kind := discordgo.PermissionOverwriteTypeRole
		if ow.Target == platform.TargetMember {
			kind = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.TargetID.String(),
			Type:  kind,
			Allow: ToPermissionBits(ow.Allow),
			Deny:  ToPermissionBits(ow.Deny),
		})
	}
	return out
}

func fromOverwrites(in []*discordgo.PermissionOverwrite) []platform.Overwrite {
	out := make([]platform.Overwrite, 0, len(in))
	for _, ow := range in {
		id, err := snowflake.ParseString(ow.ID)
		if err != nil {
			continue
		}
		target := platform.TargetRole
		if ow.Type == discordgo.PermissionOverwriteTypeMember {
			target = platform.TargetMember
		}
		out = append(out, platform.Overwrite{
			TargetID: id,
			Target:   target,
			Allow:    FromPermissionBits(ow.Allow),
			Deny:     FromPermissionBits(ow.Deny),
		})
	}
	return out
}

func fromChannel(ch *discordgo.Channel) *platform.Channel {
	id, _ := snowflake.ParseString(ch.ID)
	parent, _ := snowflake.ParseString(ch.ParentID)
	kind := platform.KindText
	if ch.Type == discordgo.ChannelTypeGuildCategory {
		kind = platform.KindCategory
	}
	return &platform.Channel{
		ID:         id,
		ParentID:   parent,
		Kind:       kind,
		Name:       ch.Name,
		Topic:      ch.Topic,
		Overwrites: fromOverwrites(ch.PermissionOverwrites),
	}
}

func channelType(kind platform.ChannelKind) discordgo.ChannelType {
	if kind == platform.KindCategory {
		return discordgo.ChannelTypeGuildCategory
	}
	return discordgo.ChannelTypeGuildText
}

// Embeds converts embeds for the REST and interaction APIs.
func Embeds(in []platform.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if e.Timestamp != nil {
			embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, embed)
	}
	return out
}

func emoji(name string) *discordgo.ComponentEmoji {
	if name == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: name}
}

func buttonStyle(style platform.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case platform.StyleSecondary:
		return discordgo.SecondaryButton
	case platform.StyleSuccess:
		return discordgo.SuccessButton
	case platform.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// Components converts action rows for the REST and interaction APIs.
func Components(rows []platform.ActionRow) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		items := make([]discordgo.MessageComponent, 0, len(row.Components))
		for _, c := range row.Components {
			switch c.Kind {
			case platform.ComponentSelect:
				options := make([]discordgo.SelectMenuOption, 0, len(c.Options))
				for _, o := range c.Options {
					options = append(options, discordgo.SelectMenuOption{
						Label:       o.Label,
						Value:       o.Value,
						Description: o.Description,
						Emoji:       emoji(o.Emoji),
					})
				}
				items = append(items, discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    c.CustomID,
					Placeholder: c.Placeholder,
					Options:     options,
					Disabled:    c.Disabled,
				})
			default:
				items = append(items, discordgo.Button{
					Label:    c.Label,
					Style:    buttonStyle(c.Style),
					Disabled: c.Disabled,
					Emoji:    emoji(c.Emoji),
					CustomID: c.CustomID,
				})
			}
		}
		out = append(out, discordgo.ActionsRow{Components: items})
	}
	return out
}

// Files converts attachments.
func Files(in []platform.File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(in))
	for _, f := range in {
		out = append(out, &discordgo.File{Name: f.Name, ContentType: f.ContentType, Reader: bytes.NewReader(f.Data)})
	}
	return out
}

func fromMessage(m *discordgo.Message) platform.HistoryMessage {
	id, _ := snowflake.ParseString(m.ID)
	out := platform.HistoryMessage{
		ID:        id,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
		HasEmbeds: len(m.Embeds) > 0,
	}
	if m.Author != nil {
		out.AuthorID, _ = snowflake.ParseString(m.Author.ID)
		out.AuthorName = m.Author.Username
	}
	return out
}
