package main

import (
	"errors"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/messages"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Jacobbrewer1/discordgo"
)

func respondSlashError(a IApp, i *discordgo.InteractionCreate) error {
	return respondSlashEphemeral(a, i, messages.ErrUserErrorProcessing)
}

func respondSlashEphemeral(a IApp, i *discordgo.InteractionCreate, content string) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondUserError relays engine rejections to the user in their own words.
// Anything that is not a user facing rejection gets the generic message.
func respondUserError(a IApp, i *discordgo.InteractionCreate, err error) error {
	var (
		cfgErr   *ticketing.ConfigurationError
		stateErr *ticketing.StateError
		permErr  *ticketing.PermissionError
		nfErr    *ticketing.NotFoundError
	)

	content := messages.ErrUserErrorProcessing
	switch {
	case errors.As(err, &cfgErr):
		content = cfgErr.Error()
	case errors.As(err, &stateErr):
		content = stateErr.Error()
	case errors.As(err, &permErr):
		content = permErr.Error()
	case errors.As(err, &nfErr):
		content = messages.ErrTicketNotFound
	}

	return respondSlashEphemeral(a, i, content)
}

// respondDeferredUpdate acknowledges a component click without changing the
// message it lives on.
func respondDeferredUpdate(a IApp, i *discordgo.InteractionCreate) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// interactionUserID returns the ID of the user behind the interaction,
// regardless of whether it arrived from a guild or a DM.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// interactionUsername returns the display name of the user behind the
// interaction.
func interactionUsername(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

// buttonRows chunks buttons into action rows of at most five, the most a row
// may carry.
func buttonRows(buttons []discordgo.MessageComponent) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, (len(buttons)+4)/5)
	for len(buttons) > 0 {
		n := len(buttons)
		if n > 5 {
			n = 5
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: buttons[:n],
		})
		buttons = buttons[n:]
	}
	return rows
}
