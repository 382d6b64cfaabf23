package domain

import "github.com/bwmarrin/snowflake"

// Actor is the guild member behind an interaction, with capabilities resolved at
// interaction time.
type Actor struct {
	ID    snowflake.ID
	Name  string
	Admin bool
	Staff bool
}

// CanModerate reports staff or administrator capability.
func (a Actor) CanModerate() bool {
	return a.Admin || a.Staff
}

// Mention renders a user mention.
func (a Actor) Mention() string {
	return UserMention(a.ID)
}

// UserMention renders <@id>.
func UserMention(id snowflake.ID) string {
	return "<@" + id.String() + ">"
}

// RoleMention renders <@&id>.
func RoleMention(id snowflake.ID) string {
	return "<@&" + id.String() + ">"
}

// ChannelMention renders <#id>.
func ChannelMention(id snowflake.ID) string {
	return "<#" + id.String() + ">"
}
