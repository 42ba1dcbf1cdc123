package ticketing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

// sinkEvent is one lifecycle event bound for the resolved logging channel.
type sinkEvent struct {
	verb    string
	emoji   string
	actorID string
	fields  []Field
	files   []*File
}

// logEvent posts a lifecycle event to the panel's logging channel. It is
// fire and forget: an unresolved channel or a failed send drops the event
// without surfacing anything to the actor.
func (s *Service) logEvent(ctx context.Context, t *entities.Ticket, p *panels.Panel, a *panels.Action, ev sinkEvent) {
	channelID := panels.ResolveString(panels.KeyLoggingChannelID, p, a, t.ServerIdentifier)
	if channelID == "" {
		return
	}

	embed := &Embed{
		Title: fmt.Sprintf("%s Ticket %s", ev.emoji, ev.verb),
		Color: p.Embed.Color,
		Fields: []Field{
			{Name: "Panel", Value: p.Identifier},
			{Name: "Action", Value: a.ButtonName()},
			{Name: "Ticket", Value: fmt.Sprintf("#%04d", t.Index)},
			{Name: "Opened by", Value: mention(t.UserID)},
		},
	}
	if ev.actorID != "" {
		embed.Fields = append(embed.Fields, Field{Name: "Handled by", Value: mention(ev.actorID)})
	}
	embed.Fields = append(embed.Fields, ev.fields...)

	_, err := s.platform.Send(ctx, channelID, Notice{
		Embeds: []*Embed{embed},
		Files:  ev.files,
	})
	if err != nil {
		s.l.Debug("dropping ticket log event",
			slog.String(logging.KeyTicketID, t.ID),
			slog.String(logging.KeyChannelID, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
