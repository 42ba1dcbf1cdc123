package ticketing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

// CloseWithPrompt runs the interactive close: the requester is offered a
// "close without reason" button, a cancel button, and a five minute window
// to type a free-text reason. Whichever arrives first wins; the dialog
// resolves exactly once. It reports whether the ticket was closed.
func (s *Service) CloseWithPrompt(ctx context.Context, ticketID string, actorID string) (bool, error) {
	t, _, _, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}

	promptID, err := s.platform.Send(ctx, t.ChannelID, Notice{
		Content: fmt.Sprintf("%s, reply with a close reason, or use the buttons below.", mention(actorID)),
		Buttons: []Button{
			{ID: CustomID(IDCloseWithoutReason, t.ID), Label: "Close without reason", Style: StyleDanger},
			{ID: CustomID(IDCloseCancel, t.ID), Label: "Cancel", Style: StyleSecondary},
		},
	})
	if err != nil {
		return false, newExternalErr("error posting close prompt", err)
	}

	out := s.dialogs.Await(ctx, closePromptTimeout,
		dialog.Expectation{Kind: dialog.KindButton, CustomID: CustomID(IDCloseWithoutReason, t.ID), UserID: actorID},
		dialog.Expectation{Kind: dialog.KindButton, CustomID: CustomID(IDCloseCancel, t.ID), UserID: actorID},
		dialog.Expectation{Kind: dialog.KindMessage, ChannelID: t.ChannelID, UserID: actorID},
	)

	s.deleteMessage(ctx, t.ChannelID, promptID)

	switch {
	case out.Expired:
		return false, nil
	case out.Index == 1: // cancel
		return false, nil
	case out.Index == 2: // free-text reason
		return true, s.Close(ctx, t.ID, actorID, out.Event.Content)
	default: // close without reason
		return true, s.Close(ctx, t.ID, actorID, "")
	}
}

// RequestClose proposes closing to the ticket's creator. The creator must
// accept or decline within the window; no response silently expires the
// proposal. It reports whether the ticket was closed.
func (s *Service) RequestClose(ctx context.Context, ticketID string, actorID string, reason string) (bool, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}

	content := fmt.Sprintf("%s, %s would like to close this ticket. Do you agree?", mention(t.UserID), mention(actorID))
	if reason != "" {
		content += fmt.Sprintf("\nReason: %s", reason)
	}
	promptID, err := s.platform.Send(ctx, t.ChannelID, Notice{
		Content: content,
		Buttons: []Button{
			{ID: CustomID(IDCloseAccept, t.ID), Label: "Accept", Style: StyleSuccess},
			{ID: CustomID(IDCloseDecline, t.ID), Label: "Decline", Style: StyleDanger},
		},
	})
	if err != nil {
		return false, newExternalErr("error posting close request", err)
	}

	out := s.dialogs.Await(ctx, requestCloseTimeout,
		dialog.Expectation{Kind: dialog.KindButton, CustomID: CustomID(IDCloseAccept, t.ID), UserID: t.UserID},
		dialog.Expectation{Kind: dialog.KindButton, CustomID: CustomID(IDCloseDecline, t.ID), UserID: t.UserID},
	)

	s.deleteMessage(ctx, t.ChannelID, promptID)

	switch {
	case out.Expired:
		return false, nil
	case out.Index == 1:
		if _, err := s.platform.Send(ctx, t.ChannelID, Notice{
			Content: fmt.Sprintf("%s declined the close request.", mention(t.UserID)),
		}); err != nil {
			s.l.Warn("error notifying close decline", slog.String(logging.KeyError, err.Error()))
		}
		s.logEvent(ctx, t, p, a, sinkEvent{verb: "Close Declined", emoji: "❌", actorID: actorID})
		return false, nil
	default:
		return true, s.Close(ctx, t.ID, actorID, reason)
	}
}

// Close is the terminal transition. It marks the record closed (exactly
// once; a concurrent closer loses on the version check), exports the
// transcript, notifies the creator, logs the event with the transcript
// attached, and deletes the channel. Channel deletion failure leaves the
// record closed with a lingering channel and is reported as non-fatal.
func (s *Service) Close(ctx context.Context, ticketID string, actorID string, reason string) error {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	// Winning this save is what closes the ticket; everything after it runs
	// at most once.
	t.Closed = true
	t.ClosedBy = actorID
	t.Reason = reason
	if err := s.save(ctx, t); err != nil {
		return err
	}
	TicketTransitions.WithLabelValues("closed").Inc()

	s.cancelExpiryEntry(ctx, t)

	joinStr := panels.ResolveJoinStr(p, a, t.ServerIdentifier)
	file, err := s.transcriber.Transcribe(ctx, t.ChannelID, t.Name(joinStr))
	if err != nil {
		s.l.Warn("error exporting ticket transcript",
			slog.String(logging.KeyTicketID, t.ID),
			slog.String(logging.KeyError, err.Error()),
		)
		file = nil
	}

	s.notifyCreatorClosed(ctx, t, p, a, file)

	ev := sinkEvent{verb: "Closed", emoji: "🔒", actorID: actorID}
	if reason != "" {
		ev.fields = append(ev.fields, Field{Name: "Reason", Value: reason})
	}
	if file != nil {
		ev.files = append(ev.files, file)
	}
	s.logEvent(ctx, t, p, a, ev)

	if t.VoiceChannelID != "" {
		if err := s.platform.DeleteChannel(ctx, t.VoiceChannelID, "ticket closed"); err != nil {
			s.l.Warn("error deleting support voice channel",
				slog.String(logging.KeyChannelID, t.VoiceChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}

	if err := s.platform.DeleteChannel(ctx, t.ChannelID, fmt.Sprintf("ticket closed by %s", actorID)); err != nil {
		return newExternalErr("ticket closed, but the channel could not be deleted", err)
	}
	return nil
}

// notifyCreatorClosed sends the creator a best-effort DM with the close
// reason and the transcript.
func (s *Service) notifyCreatorClosed(ctx context.Context, t *entities.Ticket, p *panels.Panel, a *panels.Action, file *File) {
	notice := Notice{
		Embeds: []*Embed{{
			Title:       "Your ticket has been closed",
			Description: fmt.Sprintf("%s | %s, ticket #%04d.", p.Identifier, a.ButtonName(), t.Index),
			Color:       p.Embed.Color,
		}},
	}
	if t.Reason != "" {
		notice.Embeds[0].Fields = append(notice.Embeds[0].Fields, Field{Name: "Reason", Value: t.Reason})
	}
	if file != nil {
		notice.Files = append(notice.Files, file)
	}

	if err := s.platform.DM(ctx, t.UserID, notice); err != nil {
		s.l.Debug("error sending close DM",
			slog.String(logging.KeyTicketID, t.ID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func (s *Service) deleteMessage(ctx context.Context, channelID string, messageID string) {
	if err := s.platform.DeleteMessage(ctx, channelID, messageID); err != nil {
		s.l.Debug("error deleting prompt message",
			slog.String(logging.KeyChannelID, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
