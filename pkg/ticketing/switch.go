package ticketing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

// SwitchAction re-targets a ticket to a different panel action. When the new
// action collects form details, the creator is prompted for a fresh form and
// the switch waits for it (up to 48 hours); a timeout abandons the switch
// with the ticket untouched. On success the ticket is fully re-baselined:
// new sequence index, permissions reset to the new action's roles, claim and
// escalation cleared, and a fresh header pinned.
func (s *Service) SwitchAction(ctx context.Context, ticketID string, actorID string, newPanelID string, newActionID string, newServer string) error {
	t, oldP, oldA, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	p, ok := s.panels.PanelByID(newPanelID)
	if !ok {
		return newConfigErr("panel %q is not configured, re-deploy the ticket panels", newPanelID)
	}
	a, ok := p.ActionByID(newActionID)
	if !ok {
		return newConfigErr("action %q is not configured on panel %q, re-deploy the ticket panels", newActionID, newPanelID)
	}
	if p.ID == t.PanelID && a.ID == t.ActionID {
		return newStateErr("the ticket already uses this action")
	}

	server := newServer
	if p.Server != "" {
		server = p.Server
	}

	var values []FormValue
	if len(a.FormEntries) > 0 {
		values, err = s.collectSwitchForm(ctx, t.ID, t.ChannelID, t.UserID, a)
		if err != nil {
			return err
		}
		if values == nil {
			// The creator never completed the form; nothing has changed.
			return newStateErr("the ticket action switch expired before the form was completed")
		}
	}

	// Reload before mutating. The form wait can span days and the ticket
	// may have moved on underneath; the version check still gates the save.
	t, _, _, err = s.openTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	s.cancelExpiryEntry(ctx, t)

	index, err := s.tickets.NextTicketIndex(ctx, t.GuildID, p.ID, a.ID)
	if err != nil {
		return fmt.Errorf("error drawing ticket index: %w", err)
	}

	oldHeaderID := t.HeaderMessageID
	oldName := fmt.Sprintf("%s / %s", oldP.Identifier, oldA.ButtonName())

	t.PanelID = p.ID
	t.ActionID = a.ID
	t.ServerIdentifier = server
	t.Index = index
	t.Claimed = false
	t.ClaimedBy = ""
	t.EscalationLevel = 0
	if err := s.save(ctx, t); err != nil {
		return err
	}
	TicketTransitions.WithLabelValues("action_switched").Inc()

	// Permission set is rebuilt from scratch; escalation grants and the old
	// action's roles all go.
	if err := s.platform.SetPermissions(ctx, t.ChannelID, []string{t.UserID}, panels.ResolveRoles(p, a, server)); err != nil {
		return newExternalErr("ticket re-targeted, but resetting channel permissions failed", err)
	}

	s.refreshChannelName(ctx, t, p, a)
	if err := s.platform.SetTopic(ctx, t.ChannelID, fmt.Sprintf("%s | %s", p.Identifier, a.ButtonName())); err != nil {
		s.l.Warn("error updating channel topic", slog.String(logging.KeyError, err.Error()))
	}

	if oldHeaderID != "" {
		if err := s.platform.Unpin(ctx, t.ChannelID, oldHeaderID); err != nil {
			s.l.Warn("error unpinning old ticket header", slog.String(logging.KeyError, err.Error()))
		}
	}

	headerID, err := s.platform.Send(ctx, t.ChannelID, s.headerNotice(t, p, a, values))
	if err != nil {
		return newExternalErr("ticket re-targeted, but posting the new control message failed", err)
	}
	if err := s.platform.Pin(ctx, t.ChannelID, headerID); err != nil {
		s.l.Warn("error pinning ticket header", slog.String(logging.KeyError, err.Error()))
	}
	t.HeaderMessageID = headerID
	if err := s.save(ctx, t); err != nil {
		return fmt.Errorf("error recording new header message: %w", err)
	}

	s.logEvent(ctx, t, p, a, sinkEvent{
		verb:    "Changed Ticket Action",
		emoji:   "🔁",
		actorID: actorID,
		fields: []Field{
			{Name: "From", Value: oldName},
			{Name: "To", Value: fmt.Sprintf("%s / %s", p.Identifier, a.ButtonName())},
		},
	})
	return nil
}

// collectSwitchForm prompts the creator to fill the new action's form and
// waits for the completed submission. It returns nil values on expiry.
func (s *Service) collectSwitchForm(ctx context.Context, ticketID string, channelID string, creatorID string, a *panels.Action) ([]FormValue, error) {
	promptID, err := s.platform.Send(ctx, channelID, Notice{
		Content: fmt.Sprintf("%s, this ticket is being moved to %q. Please provide the details it needs.", mention(creatorID), a.ButtonName()),
		Buttons: []Button{
			{ID: CustomID(IDSwitchForm, ticketID), Label: "Provide details", Style: StylePrimary},
		},
	})
	if err != nil {
		return nil, newExternalErr("error posting form prompt", err)
	}

	out := s.dialogs.Await(ctx, switchFormTimeout,
		dialog.Expectation{Kind: dialog.KindForm, CustomID: CustomID(IDSwitchForm, ticketID), UserID: creatorID},
	)

	s.deleteMessage(ctx, channelID, promptID)

	if out.Expired {
		return nil, nil
	}

	values := make([]FormValue, 0, len(a.FormEntries))
	for i, entry := range a.FormEntries {
		v := ""
		if i < len(out.Event.Values) {
			v = out.Event.Values[i]
		}
		values = append(values, FormValue{Label: entry.Label, Value: v})
	}
	return values, nil
}
