package ticketing

import (
	"context"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

// ToggleSupportVC creates the ticket's companion voice channel, or tears it
// down when one is already active. The relation is stored on the ticket, so
// the channel is found again without name matching.
func (s *Service) ToggleSupportVC(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !p.HasDedicatedSupportVCs {
		return nil, newConfigErr("panel %q does not offer dedicated support voice channels", p.Identifier)
	}

	if t.VoiceChannelID != "" {
		return s.endSupportVC(ctx, t, p, a, actorID)
	}
	return s.startSupportVC(ctx, t, p, a, actorID)
}

func (s *Service) startSupportVC(ctx context.Context, t *entities.Ticket, p *panels.Panel, a *panels.Action, actorID string) (*entities.Ticket, error) {
	// Mirror the ticket channel's current grants: the creator, the baseline
	// roles, and every escalation role granted so far.
	roles := append([]string(nil), panels.ResolveRoles(p, a, t.ServerIdentifier)...)
	chain := escalationChain(t, p, a)
	for i := 0; i < t.EscalationLevel && i < len(chain); i++ {
		roles = append(roles, chain[i])
	}

	name := markerVoice + t.Name(panels.ResolveJoinStr(p, a, t.ServerIdentifier))
	channelID, err := s.platform.CreateChannel(ctx, t.GuildID, ChannelParams{
		Name:       name,
		CategoryID: panels.ResolveString(panels.KeyCategoryID, p, a, t.ServerIdentifier),
		UserIDs:    []string{t.UserID},
		RoleIDs:    roles,
		Voice:      true,
	})
	if err != nil {
		return nil, newExternalErr("error creating support voice channel", err)
	}

	t.VoiceChannelID = channelID
	if err := s.save(ctx, t); err != nil {
		// Lost the race; do not leave an untracked channel behind.
		_ = s.platform.DeleteChannel(ctx, channelID, "support VC record could not be saved")
		return nil, err
	}

	TicketTransitions.WithLabelValues("support_vc_started").Inc()
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Support VC Opened", emoji: markerVoice, actorID: actorID})
	return t, nil
}

func (s *Service) endSupportVC(ctx context.Context, t *entities.Ticket, p *panels.Panel, a *panels.Action, actorID string) (*entities.Ticket, error) {
	if err := s.platform.DeleteChannel(ctx, t.VoiceChannelID, "support VC closed"); err != nil {
		return nil, newExternalErr("error deleting support voice channel", err)
	}

	t.VoiceChannelID = ""
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	TicketTransitions.WithLabelValues("support_vc_ended").Inc()
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Support VC Closed", emoji: "🔇", actorID: actorID})
	return t, nil
}
