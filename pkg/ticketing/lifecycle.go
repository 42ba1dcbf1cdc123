package ticketing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

// openTicket loads a ticket and its configuration for a transition. Closed
// tickets are terminal and reject every transition.
func (s *Service) openTicket(ctx context.Context, ticketID string) (*entities.Ticket, *panels.Panel, *panels.Action, error) {
	t, err := s.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, err
	}
	if t.Closed {
		return nil, nil, nil, newStateErr("this ticket has already been closed")
	}
	p, a, err := s.refs(t)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, p, a, nil
}

// Claim marks a ticket as being handled by the actor.
func (s *Service) Claim(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if err := s.rejectNonStaffCreator(ctx, t, p, a, actorID, "claim"); err != nil {
		return nil, err
	}
	if t.Claimed {
		return nil, newStateErr("this ticket is already claimed by %s, unclaim it first", mention(t.ClaimedBy))
	}

	t.Claimed = true
	t.ClaimedBy = actorID
	t.AddActiveStaff(actorID)
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	TicketTransitions.WithLabelValues("claimed").Inc()
	s.refreshChannelName(ctx, t, p, a)
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Claimed", emoji: markerClaimed, actorID: actorID})
	return t, nil
}

// Unclaim releases a claimed ticket back to the queue.
func (s *Service) Unclaim(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if err := s.rejectNonStaffCreator(ctx, t, p, a, actorID, "unclaim"); err != nil {
		return nil, err
	}
	if !t.Claimed {
		return nil, newStateErr("this ticket is not claimed")
	}

	t.Claimed = false
	t.ClaimedBy = ""
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	TicketTransitions.WithLabelValues("unclaimed").Inc()
	s.refreshChannelName(ctx, t, p, a)
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Unclaimed", emoji: "📤", actorID: actorID})
	return t, nil
}

// rejectNonStaffCreator blocks a ticket creator from claim transitions on
// their own ticket, unless they hold one of the action's permission roles. A
// staff member's own ticket is still a ticket they may work.
func (s *Service) rejectNonStaffCreator(ctx context.Context, t *entities.Ticket, p *panels.Panel, a *panels.Action, actorID string, verb string) error {
	if actorID != t.UserID {
		return nil
	}
	staff, err := s.holdsRoleAtOrAbove(ctx, t.GuildID, actorID, panels.ResolveRoles(p, a, t.ServerIdentifier), 0)
	if err != nil {
		return err
	}
	if !staff {
		return newPermissionErr("you cannot %s your own ticket", verb)
	}
	return nil
}

// escalationChain returns the panel's escalation chain with the baseline
// roles filtered out. Roles already granted on every ticket cannot widen
// visibility, so they take no level.
func escalationChain(t *entities.Ticket, p *panels.Panel, a *panels.Action) []string {
	return p.EscalationChain(panels.ResolveRoles(p, a, t.ServerIdentifier))
}

// holdsRoleAtOrAbove reports whether the actor holds any chain role at or
// above the given position.
func (s *Service) holdsRoleAtOrAbove(ctx context.Context, guildID string, actorID string, chain []string, from int) (bool, error) {
	for i := from; i < len(chain); i++ {
		ok, err := s.platform.MemberHasRole(ctx, guildID, actorID, chain[i])
		if err != nil {
			return false, fmt.Errorf("error checking member role: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Escalate grants the next escalation role access to the ticket channel and
// raises the level.
func (s *Service) Escalate(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !t.Claimed {
		return nil, newStateErr("claim the ticket before escalating it")
	}

	chain := escalationChain(t, p, a)
	if len(chain) == 0 {
		return nil, newConfigErr("panel %q has no escalation chain", p.Identifier)
	}
	if t.EscalationLevel >= len(chain) {
		return nil, newStateErr("this ticket is already at the highest escalation level")
	}

	if t.EscalationLevel == 0 {
		if actorID != t.ClaimedBy {
			return nil, newPermissionErr("only the claimer can start an escalation")
		}
	} else {
		ok, err := s.holdsRoleAtOrAbove(ctx, t.GuildID, actorID, chain, t.EscalationLevel-1)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newPermissionErr("you need the current escalation role to escalate further")
		}
	}

	next := chain[t.EscalationLevel]
	if err := s.platform.AllowRole(ctx, t.ChannelID, next); err != nil {
		return nil, newExternalErr("error granting the escalation role", err)
	}

	t.EscalationLevel++
	t.AddActiveStaff(actorID)
	if err := s.save(ctx, t); err != nil {
		// Another transition won; take the grant back.
		if denyErr := s.platform.DenyRole(ctx, t.ChannelID, next); denyErr != nil {
			s.l.Warn("error reverting escalation grant", slog.String(logging.KeyError, denyErr.Error()))
		}
		return nil, err
	}

	TicketTransitions.WithLabelValues("escalated").Inc()
	s.refreshChannelName(ctx, t, p, a)
	s.logEvent(ctx, t, p, a, sinkEvent{
		verb:    "Escalated",
		emoji:   markerEscalated,
		actorID: actorID,
		fields:  []Field{{Name: "Level", Value: fmt.Sprintf("%d/%d", t.EscalationLevel, len(chain))}},
	})
	return t, nil
}

// Deescalate revokes the current escalation role's access and lowers the
// level.
func (s *Service) Deescalate(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	chain := escalationChain(t, p, a)
	if t.EscalationLevel == 0 {
		return nil, newStateErr("this ticket is not escalated")
	}

	ok, err := s.holdsRoleAtOrAbove(ctx, t.GuildID, actorID, chain, t.EscalationLevel-1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newPermissionErr("you need the current escalation role to de-escalate")
	}

	current := chain[t.EscalationLevel-1]
	if err := s.platform.DenyRole(ctx, t.ChannelID, current); err != nil {
		return nil, newExternalErr("error revoking the escalation role", err)
	}

	t.EscalationLevel--
	if err := s.save(ctx, t); err != nil {
		if allowErr := s.platform.AllowRole(ctx, t.ChannelID, current); allowErr != nil {
			s.l.Warn("error reverting de-escalation", slog.String(logging.KeyError, allowErr.Error()))
		}
		return nil, err
	}

	TicketTransitions.WithLabelValues("deescalated").Inc()
	s.refreshChannelName(ctx, t, p, a)
	s.logEvent(ctx, t, p, a, sinkEvent{
		verb:    "De-escalated",
		emoji:   "⬇️",
		actorID: actorID,
		fields:  []Field{{Name: "Level", Value: fmt.Sprintf("%d/%d", t.EscalationLevel, len(chain))}},
	})
	return t, nil
}
