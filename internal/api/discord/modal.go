package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/intake"
)

// Modal renders a form as a modal response.
func Modal(form intake.Form) *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(form.Fields))
	for _, field := range form.Fields {
		style := discordgo.TextInputShort
		if field.Style == intake.StyleParagraph {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    field.ID,
				Label:       field.Label,
				Style:       style,
				Placeholder: field.Placeholder,
				Required:    field.Required,
				MinLength:   field.MinLength,
				MaxLength:   field.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   form.ID,
			Title:      form.Title,
			Components: rows,
		},
	}
}

// ModalValues collects submitted text inputs by custom id.
func ModalValues(components []discordgo.MessageComponent) intake.Values {
	values := intake.Values{}
	for _, c := range components {
		collectInputs(c, values)
	}
	return values
}

func collectInputs(c discordgo.MessageComponent, values intake.Values) {
	switch v := c.(type) {
	case *discordgo.ActionsRow:
		for _, inner := range v.Components {
			collectInputs(inner, values)
		}
	case discordgo.ActionsRow:
		for _, inner := range v.Components {
			collectInputs(inner, values)
		}
	case *discordgo.TextInput:
		values[v.CustomID] = v.Value
	case discordgo.TextInput:
		values[v.CustomID] = v.Value
	}
}
