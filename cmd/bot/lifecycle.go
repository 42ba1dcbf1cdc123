package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/messages"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Jacobbrewer1/discordgo"
)

// componentTicketID extracts the ticket ID a lifecycle button carries.
func componentTicketID(i *discordgo.InteractionCreate) (string, error) {
	_, parts, _ := ticketing.ParseCustomID(i.MessageComponentData().CustomID)
	if len(parts) != 1 {
		return "", fmt.Errorf("malformed lifecycle custom ID %q", i.MessageComponentData().CustomID)
	}
	return parts[0], nil
}

func claimHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	if _, err := a.Ticketing().Claim(context.Background(), ticketID, interactionUserID(i)); err != nil {
		return err
	}
	return respondSlashEphemeral(a, i, "You have claimed this ticket")
}

func unclaimHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	if _, err := a.Ticketing().Unclaim(context.Background(), ticketID, interactionUserID(i)); err != nil {
		return err
	}
	return respondSlashEphemeral(a, i, "You have unclaimed this ticket")
}

// closeHandler starts the close prompt. The prompt waits minutes for a
// reason, a button, or a cancel, so the interaction is answered first and
// the dialog runs on its own.
func closeHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	actorID := interactionUserID(i)

	if err := respondSlashEphemeral(a, i, messages.ClosePromptSent); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	go func() {
		if _, err := a.Ticketing().CloseWithPrompt(context.Background(), ticketID, actorID); err != nil {
			a.Log().Error("Error running close prompt",
				slog.String(logging.KeyTicketID, ticketID),
				slog.String(logging.KeyError, err.Error()))
		}
	}()
	return nil
}

// requestCloseHandler asks the ticket creator to confirm closing.
func requestCloseHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	actorID := interactionUserID(i)

	if err := respondSlashEphemeral(a, i, messages.CloseRequested); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	go func() {
		if _, err := a.Ticketing().RequestClose(context.Background(), ticketID, actorID, ""); err != nil {
			a.Log().Error("Error running close request",
				slog.String(logging.KeyTicketID, ticketID),
				slog.String(logging.KeyError, err.Error()))
		}
	}()
	return nil
}

// expireToggleHandler arms the auto-expire window, or disarms it when it is
// already running.
func expireToggleHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ticket, err := a.Ticketing().TicketByID(ctx, ticketID)
	if err != nil {
		return err
	}

	if a.Ticketing().ExpiryScheduled(ctx, ticket) {
		if _, err := a.Ticketing().CancelExpiry(ctx, ticketID, interactionUserID(i)); err != nil {
			return err
		}
		return respondSlashEphemeral(a, i, "Auto expiry has been cancelled")
	}

	if _, err := a.Ticketing().RequestExpiry(ctx, ticketID, interactionUserID(i)); err != nil {
		return err
	}
	return respondSlashEphemeral(a, i, "This ticket will close automatically if it stays inactive")
}

func escalateHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	ticket, err := a.Ticketing().Escalate(context.Background(), ticketID, interactionUserID(i))
	if err != nil {
		return err
	}
	return respondSlashEphemeral(a, i, fmt.Sprintf("Ticket escalated to level %d", ticket.EscalationLevel))
}

func deescalateHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	ticket, err := a.Ticketing().Deescalate(context.Background(), ticketID, interactionUserID(i))
	if err != nil {
		return err
	}
	return respondSlashEphemeral(a, i, fmt.Sprintf("Ticket de-escalated to level %d", ticket.EscalationLevel))
}

func supportVCHandler(a IApp, i *discordgo.InteractionCreate) error {
	ticketID, err := componentTicketID(i)
	if err != nil {
		return err
	}
	ticket, err := a.Ticketing().ToggleSupportVC(context.Background(), ticketID, interactionUserID(i))
	if err != nil {
		return err
	}

	if ticket.VoiceChannelID != "" {
		return respondSlashEphemeral(a, i, fmt.Sprintf("Support voice channel opened: %s", channelMention(ticket.VoiceChannelID)))
	}
	return respondSlashEphemeral(a, i, "Support voice channel closed")
}
