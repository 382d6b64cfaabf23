package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	for _, info := range Categories() {
		got, ok := ParseCategory(string(info.Key))
		assert.True(t, ok, info.Key)
		assert.Equal(t, info.Key, got)
	}

	got, ok := ParseCategory(" BUG ")
	assert.True(t, ok)
	assert.Equal(t, CategoryBug, got)

	_, ok = ParseCategory("billing")
	assert.False(t, ok)
}

func TestCategoriesAreCopied(t *testing.T) {
	list := Categories()
	list[0].Name = "mutated"
	info, ok := CategorySupport.Info()
	assert.True(t, ok)
	assert.Equal(t, "Support Tickets", info.Name)
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("Urgent")
	assert.True(t, ok)
	assert.Equal(t, TicketPriorityUrgent, p)

	_, ok = ParsePriority("none")
	assert.False(t, ok, "none is a default, not a selectable level")

	assert.True(t, TicketPriorityHigh.Alerts())
	assert.True(t, TicketPriorityUrgent.Alerts())
	assert.False(t, TicketPriorityMedium.Alerts())
	assert.False(t, TicketPriorityLow.Alerts())
}

func TestTicketHelpers(t *testing.T) {
	rank := "vip"
	claimant := snowflake.ID(42)
	ticket := &Ticket{Number: 7, Category: CategoryRank, Rank: &rank}

	assert.Equal(t, "ticket-0007", ticket.ChannelName())
	assert.Equal(t, "#0007", ticket.DisplayNumber())
	assert.False(t, ticket.Claimed())
	assert.True(t, ticket.PaymentPending())

	ticket.AssigneeID = &claimant
	assert.True(t, ticket.Claimed())
	assert.True(t, ticket.ClaimedBy(42))
	assert.False(t, ticket.ClaimedBy(43))

	record := "App Used: UPI"
	ticket.Transaction = &record
	assert.False(t, ticket.PaymentPending())
}

func TestControlTransitions(t *testing.T) {
	assert.True(t, CanTransition(ControlPriority, ControlIssued, ControlUsed))
	assert.False(t, CanTransition(ControlPriority, ControlUsed, ControlUsed))
	assert.False(t, CanTransition(ControlPriority, ControlIssued, ControlPending))

	assert.True(t, CanTransition(ControlCallStaff, ControlIssued, ControlPending))
	assert.True(t, CanTransition(ControlCallStaff, ControlPending, ControlPending))
	assert.True(t, CanTransition(ControlCallStaff, ControlPending, ControlConfirmed))
	assert.False(t, CanTransition(ControlCallStaff, ControlIssued, ControlConfirmed))
	assert.False(t, CanTransition(ControlCallStaff, ControlConfirmed, ControlPending))

	assert.False(t, CanTransition(ControlKind("unknown"), ControlIssued, ControlUsed))
}

func TestControlInert(t *testing.T) {
	assert.False(t, NewControl(ControlPriority).Inert())
	assert.False(t, Control{Kind: ControlCallStaff, State: ControlPending}.Inert())
	assert.True(t, Control{Kind: ControlPriority, State: ControlUsed}.Inert())
	assert.True(t, Control{Kind: ControlCallStaff, State: ControlConfirmed}.Inert())
}

func TestMentions(t *testing.T) {
	assert.Equal(t, "<@5>", UserMention(5))
	assert.Equal(t, "<@&6>", RoleMention(6))
	assert.Equal(t, "<#7>", ChannelMention(7))
	assert.Equal(t, "<@8>", Actor{ID: 8}.Mention())
	assert.True(t, Actor{Staff: true}.CanModerate())
	assert.True(t, Actor{Admin: true}.CanModerate())
	assert.False(t, Actor{}.CanModerate())
}
