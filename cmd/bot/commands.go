package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/messages"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Jacobbrewer1/discordgo"
)

const (
	// DeployPanelCmdName is the command for deploying a ticket panel.
	DeployPanelCmdName = "deploy-ticket-panel"

	// SetTicketActionCmdName is the command for moving a ticket to a
	// different action.
	SetTicketActionCmdName = "set-ticket-action"

	// panelOptionName is the option carrying the panel ID.
	panelOptionName = "panel"

	// actionOptionName is the option carrying the action ID.
	actionOptionName = "action"

	// serverOptionName is the option carrying the server identifier.
	serverOptionName = "server"
)

// applicationCommands builds the slash commands to register. Panel choices
// come from the loaded configuration, so this runs after parseConfig.
func applicationCommands() []*discordgo.ApplicationCommand {
	panelChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(Panels.Panels))
	for _, p := range Panels.Panels {
		panelChoices = append(panelChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  p.Identifier,
			Value: p.ID,
		})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        DeployPanelCmdName,
			Type:        discordgo.ChatApplicationCommand,
			Description: "This posts a ticket panel with its action buttons into the current channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        panelOptionName,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The panel to deploy.",
					Required:    true,
					Choices:     panelChoices,
				},
			},
		},
		{
			Name:        SetTicketActionCmdName,
			Type:        discordgo.ChatApplicationCommand,
			Description: "This moves the ticket in the current channel to a different action.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        panelOptionName,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The panel the new action belongs to.",
					Required:    true,
					Choices:     panelChoices,
				},
				{
					Name:        actionOptionName,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The action to move the ticket to.",
					Required:    true,
				},
				{
					Name:        serverOptionName,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The server the ticket concerns, where the panel offers a choice.",
					Required:    false,
				},
			},
		},
	}
}

// commandOption returns the named string option, or empty when absent.
func commandOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

// requireManageChannels rejects users without channel management rights.
func requireManageChannels(a IApp, i *discordgo.InteractionCreate) bool {
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionManageChannels != 0 {
		return true
	}
	if err := respondSlashEphemeral(a, i, messages.ErrNotPermitted); err != nil {
		a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
	}
	return false
}

func deployPanelHandler(a IApp, i *discordgo.InteractionCreate) error {
	if !requireManageChannels(a, i) {
		return nil
	}

	panelID := commandOption(i, panelOptionName)
	panel, ok := a.Panels().PanelByID(panelID)
	if !ok {
		return fmt.Errorf("panel %q is not configured", panelID)
	}

	if _, err := a.Session().ChannelMessageSendComplex(i.ChannelID, panelMessage(panel)); err != nil {
		return fmt.Errorf("error posting panel: %w", err)
	}

	return respondSlashEphemeral(a, i, fmt.Sprintf("Deployed the %s panel", panel.Identifier))
}

// panelMessage renders a panel's embed with one button per configured
// action.
func panelMessage(panel *panels.Panel) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title:       panel.Embed.Title,
		Description: panel.Embed.Description,
		Color:       panel.Embed.Color,
	}

	buttons := make([]discordgo.MessageComponent, 0, len(panel.Actions))
	for _, action := range panel.Actions {
		if action == nil {
			continue
		}
		buttons = append(buttons, discordgo.Button{
			Label:    action.ButtonName(),
			Style:    panelButtonStyle(action.ButtonColor),
			Emoji:    discordgo.ComponentEmoji{Name: action.ButtonEmoji},
			CustomID: ticketActionCustomID(panel.ID, action.ID),
		})
	}

	return &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: buttonRows(buttons),
	}
}

func panelButtonStyle(color string) discordgo.ButtonStyle {
	switch color {
	case "green":
		return discordgo.SuccessButton
	case "red":
		return discordgo.DangerButton
	case "grey", "gray":
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}

func setTicketActionHandler(a IApp, i *discordgo.InteractionCreate) error {
	if !requireManageChannels(a, i) {
		return nil
	}

	ctx := context.Background()
	ticket, err := a.Ticketing().TicketByChannel(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		return respondUserError(a, i, err)
	}

	panelID := commandOption(i, panelOptionName)
	actionID := commandOption(i, actionOptionName)
	server := commandOption(i, serverOptionName)
	actorID := interactionUserID(i)

	// When the new action collects details, the creator's form arrives
	// through the pending form store; seed it before the engine starts
	// waiting.
	if panel, ok := a.Panels().PanelByID(panelID); ok {
		if action, ok := panel.ActionByID(actionID); ok && len(action.FormEntries) > 0 {
			a.PendingForms().Set(switchFormKey(ticket.ID), &pendingForm{
				GuildID:  ticket.GuildID,
				PanelID:  panelID,
				ActionID: actionID,
				Server:   server,
				UserID:   ticket.UserID,
				Username: ticket.Username,
				TicketID: ticket.ID,
			})
		}
	}

	if err := respondSlashEphemeral(a, i, "Switching the ticket action"); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	// The switch may wait up to two days for the creator to fill the new
	// action's form, so it cannot hold the interaction open.
	go func() {
		defer a.PendingForms().Delete(switchFormKey(ticket.ID))
		if err := a.Ticketing().SwitchAction(context.Background(), ticket.ID, actorID, panelID, actionID, server); err != nil {
			a.Log().Error("Error switching ticket action",
				slog.String(logging.KeyTicketID, ticket.ID),
				slog.String(logging.KeyError, err.Error()))
		}
	}()
	return nil
}
