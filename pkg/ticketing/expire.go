package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/custom"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
)

// autoExpireActor is recorded as the closer on expiry closes.
const autoExpireActor = "auto-expire"

// RequestExpiry schedules a deferred close for a ticket. The due time is
// persisted on the guild settings, so a restart can re-arm or force the
// close; the in-process timer only covers the happy path.
func (s *Service) RequestExpiry(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	settings, err := s.guildSettings(ctx, t.GuildID)
	if err != nil {
		return nil, err
	}
	if settings.ExpireEntryFor(t.ChannelID) != nil {
		return nil, newStateErr("an auto expiry is already scheduled for this ticket")
	}

	expireAt := s.now().Add(expireDelay)
	settings.AutoExpire = append(settings.AutoExpire, entities.AutoExpireEntry{
		TicketID:  t.ID,
		ChannelID: t.ChannelID,
		ExpireAt:  custom.Datetime(expireAt),
	})
	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("error saving expiry entry: %w", err)
	}

	s.armExpiry(t.ChannelID, t.ID, expireAt)

	TicketTransitions.WithLabelValues("expiry_scheduled").Inc()
	s.refreshChannelName(ctx, t, p, a)
	if _, err := s.platform.Send(ctx, t.ChannelID, Notice{
		Content: fmt.Sprintf("%s This ticket will close automatically <t:%d:R> unless the expiry is cancelled.", markerExpiring, expireAt.Unix()),
	}); err != nil {
		s.l.Warn("error announcing expiry", slog.String(logging.KeyError, err.Error()))
	}
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Expiry Scheduled", emoji: markerExpiring, actorID: actorID})
	return t, nil
}

// CancelExpiry removes a pending deferred close.
func (s *Service) CancelExpiry(ctx context.Context, ticketID string, actorID string) (*entities.Ticket, error) {
	t, p, a, err := s.openTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	settings, err := s.guildSettings(ctx, t.GuildID)
	if err != nil {
		return nil, err
	}
	if !settings.RemoveExpireEntry(t.ChannelID) {
		return nil, newStateErr("no auto expiry is scheduled for this ticket")
	}
	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("error removing expiry entry: %w", err)
	}
	s.sched.Cancel(t.ChannelID)

	TicketTransitions.WithLabelValues("expiry_cancelled").Inc()
	s.refreshChannelName(ctx, t, p, a)
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Expiry Cancelled", emoji: "🛑", actorID: actorID})
	return t, nil
}

// ExpiryScheduled reports whether a deferred close is pending for the
// ticket's channel. The header button toggles on this.
func (s *Service) ExpiryScheduled(ctx context.Context, t *entities.Ticket) bool {
	settings, err := s.settings.GetSettings(ctx, t.GuildID)
	if err != nil {
		return false
	}
	return settings.ExpireEntryFor(t.ChannelID) != nil
}

// guildSettings loads a guild's settings document, starting a fresh one for
// guilds that have none yet.
func (s *Service) guildSettings(ctx context.Context, guildID string) (*entities.GuildSettings, error) {
	settings, err := s.settings.GetSettings(ctx, guildID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return &entities.GuildSettings{GuildID: guildID}, nil
		}
		return nil, fmt.Errorf("error loading guild settings: %w", err)
	}
	return settings, nil
}

// armExpiry points the in-process timer at the persisted due time.
func (s *Service) armExpiry(channelID string, ticketID string, at time.Time) {
	s.sched.Schedule(channelID, at, func() {
		if err := s.expireNow(context.Background(), ticketID); err != nil {
			s.l.Error("error expiring ticket",
				slog.String(logging.KeyTicketID, ticketID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	})
}

// expireNow performs the deferred close. A ticket already closed by another
// path is not an error; the entry is simply dropped.
func (s *Service) expireNow(ctx context.Context, ticketID string) error {
	t, err := s.tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("error loading expiring ticket: %w", err)
	}
	if t.Closed {
		s.cancelExpiryEntry(ctx, t)
		return nil
	}

	TicketTransitions.WithLabelValues("expired").Inc()
	return s.Close(ctx, ticketID, autoExpireActor, "Closed automatically after the expiry window elapsed")
}

// cancelExpiryEntry drops any pending expiry for a ticket, both the durable
// entry and the in-process timer. Used when a ticket leaves the expiry path
// by being closed or re-targeted; best effort.
func (s *Service) cancelExpiryEntry(ctx context.Context, t *entities.Ticket) {
	s.sched.Cancel(t.ChannelID)

	settings, err := s.guildSettings(ctx, t.GuildID)
	if err != nil {
		s.l.Warn("error loading settings to drop expiry entry", slog.String(logging.KeyError, err.Error()))
		return
	}
	if !settings.RemoveExpireEntry(t.ChannelID) {
		return
	}
	if err := s.settings.SaveSettings(ctx, settings); err != nil {
		s.l.Warn("error dropping expiry entry", slog.String(logging.KeyError, err.Error()))
	}
}

// ReconcileExpiries replays the persisted expiry entries against the clock:
// entries for closed or missing tickets are dropped, overdue tickets are
// force-closed, and future entries are re-armed. Run at startup and then
// periodically, so a crashed process never loses a deferred close for good.
func (s *Service) ReconcileExpiries(ctx context.Context) error {
	all, err := s.settings.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("error listing guild settings: %w", err)
	}

	for _, settings := range all {
		changed := false
		for _, entry := range append([]entities.AutoExpireEntry(nil), settings.AutoExpire...) {
			t, err := s.tickets.GetTicketByID(ctx, entry.TicketID)
			switch {
			case errors.Is(err, dataaccess.ErrNotFound) || (err == nil && t.Closed):
				settings.RemoveExpireEntry(entry.ChannelID)
				s.sched.Cancel(entry.ChannelID)
				changed = true
			case err != nil:
				s.l.Error("error loading ticket during expiry reconciliation",
					slog.String(logging.KeyTicketID, entry.TicketID),
					slog.String(logging.KeyError, err.Error()),
				)
			case !entry.ExpireAt.Time().After(s.now()):
				if err := s.expireNow(ctx, entry.TicketID); err != nil {
					s.l.Error("error force-closing overdue ticket",
						slog.String(logging.KeyTicketID, entry.TicketID),
						slog.String(logging.KeyError, err.Error()),
					)
				} else {
					// The close already dropped the durable entry; drop it
					// from the working copy too, or a later save in this
					// sweep would write it back.
					settings.RemoveExpireEntry(entry.ChannelID)
				}
			case !s.sched.Active(entry.ChannelID):
				s.armExpiry(entry.ChannelID, entry.TicketID, entry.ExpireAt.Time())
			}
		}
		if changed {
			if err := s.settings.SaveSettings(ctx, settings); err != nil {
				s.l.Error("error saving reconciled settings", slog.String(logging.KeyError, err.Error()))
			}
		}
	}
	return nil
}
