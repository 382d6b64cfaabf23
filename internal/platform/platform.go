// Package platform is the chat-platform contract the ticket workflow depends on.
// Identities are snowflakes; the Discord adapter lives in the discord subpackage.
package platform

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Permission is a bit set of channel capabilities.
type Permission int64

const (
	PermView Permission = 1 << iota
	PermSend
	PermManageChannels
	PermReadHistory
	PermAttachFiles
)

// Has reports whether every bit of want is set.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

// OverwriteTarget says whether an overwrite applies to a role or a member.
type OverwriteTarget int

const (
	TargetRole OverwriteTarget = iota
	TargetMember
)

// Overwrite adjusts permissions for one role or member on a channel.
type Overwrite struct {
	TargetID snowflake.ID
	Target   OverwriteTarget
	Allow    Permission
	Deny     Permission
}

// ChannelKind separates text channels from the categories that group them.
type ChannelKind int

const (
	KindText ChannelKind = iota
	KindCategory
)

// Channel is a guild channel or category.
type Channel struct {
	ID         snowflake.ID
	ParentID   snowflake.ID
	Kind       ChannelKind
	Name       string
	Topic      string
	Overwrites []Overwrite
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name       string
	Kind       ChannelKind
	ParentID   snowflake.ID
	Topic      string
	Overwrites []Overwrite
}

// Role is a guild role.
type Role struct {
	ID   snowflake.ID
	Name string
}

// EmbedField is one name/value pair in an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   *time.Time
}

// ComponentKind distinguishes buttons from select menus.
type ComponentKind int

const (
	ComponentButton ComponentKind = iota
	ComponentSelect
)

// ButtonStyle mirrors the platform's button colors.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// Component is a button or select menu.
type Component struct {
	Kind        ComponentKind
	CustomID    string
	Label       string
	Emoji       string
	Style       ButtonStyle
	Placeholder string
	Options     []SelectOption
	Disabled    bool
}

// ActionRow groups components on one line.
type ActionRow struct {
	Components []Component
}

// File is an attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is outgoing message content.
type Message struct {
	Content string
	Embeds  []Embed
	Rows    []ActionRow
	Files   []File
}

// HistoryMessage is a message read back from a channel.
type HistoryMessage struct {
	ID         snowflake.ID
	AuthorID   snowflake.ID
	AuthorName string
	Content    string
	CreatedAt  time.Time
	HasEmbeds  bool
}

// Platform is the guild the bot serves.
type Platform interface {
	BotUserID() snowflake.ID
	EveryoneRoleID() snowflake.ID
	GuildOwnerID(ctx context.Context) (snowflake.ID, error)
	// RoleByName returns nil, nil when no role has the name.
	RoleByName(ctx context.Context, name string) (*Role, error)
	Channel(ctx context.Context, id snowflake.ID) (*Channel, error)
	// FindChannel returns nil, nil when no channel of the kind has the name.
	FindChannel(ctx context.Context, name string, kind ChannelKind) (*Channel, error)
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, id snowflake.ID) error
	SetOverwrites(ctx context.Context, channelID snowflake.ID, overwrites []Overwrite) error
	SendMessage(ctx context.Context, channelID snowflake.ID, msg Message) (snowflake.ID, error)
	EditMessage(ctx context.Context, channelID, messageID snowflake.ID, msg Message) error
	PinMessage(ctx context.Context, channelID, messageID snowflake.ID) error
	// History returns up to limit messages oldest first; limit <= 0 reads the whole channel.
	History(ctx context.Context, channelID snowflake.ID, limit int) ([]HistoryMessage, error)
}
