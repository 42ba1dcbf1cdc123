// Package ticketing is the ticket lifecycle engine. It owns the state
// machine from intake to close and drives the chat platform through the
// narrow Platform contract; everything Discord-specific lives in the
// command layer.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/custom"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/schedule"
)

const (
	// closePromptTimeout bounds the close confirmation dialog.
	closePromptTimeout = 5 * time.Minute

	// requestCloseTimeout bounds the creator's accept/decline window.
	requestCloseTimeout = 5 * time.Minute

	// switchFormTimeout bounds the fresh form collection on switch-action.
	switchFormTimeout = 48 * time.Hour

	// expireDelay is how long after an expiry request the ticket closes.
	expireDelay = 48 * time.Hour
)

// Channel name markers, applied as prefixes on lifecycle transitions.
const (
	markerClaimed   = "📍"
	markerEscalated = "⬆️"
	markerExpiring  = "⏰"
	markerVoice     = "🔊"
)

// Service is the lifecycle engine. One instance serves the process.
type Service struct {
	l *slog.Logger

	panels   *panels.Config
	tickets  dataaccess.TicketDal
	users    dataaccess.UserDal
	settings dataaccess.SettingsDal

	platform    Platform
	transcriber Transcriber
	dialogs     *dialog.Dispatcher
	sched       schedule.Scheduler

	// now is swapped in tests.
	now func() time.Time
}

// NewService creates the lifecycle engine.
func NewService(
	l *slog.Logger,
	cfg *panels.Config,
	tickets dataaccess.TicketDal,
	users dataaccess.UserDal,
	settings dataaccess.SettingsDal,
	platform Platform,
	transcriber Transcriber,
	dialogs *dialog.Dispatcher,
	sched schedule.Scheduler,
) *Service {
	return &Service{
		l:           l,
		panels:      cfg,
		tickets:     tickets,
		users:       users,
		settings:    settings,
		platform:    platform,
		transcriber: transcriber,
		dialogs:     dialogs,
		sched:       sched,
		now:         time.Now,
	}
}

// refs resolves a ticket's stored panel and action identifiers against the
// static configuration. A missing identifier means the configuration has
// drifted since the ticket was created.
func (s *Service) refs(t *entities.Ticket) (*panels.Panel, *panels.Action, error) {
	p, ok := s.panels.PanelByID(t.PanelID)
	if !ok {
		return nil, nil, newConfigErr("panel %q is no longer configured, re-deploy the ticket panels", t.PanelID)
	}
	a, ok := p.ActionByID(t.ActionID)
	if !ok {
		return nil, nil, newConfigErr("action %q is no longer configured on panel %q, re-deploy the ticket panels", t.ActionID, t.PanelID)
	}
	return p, a, nil
}

// TicketByChannel loads the open ticket bound to a channel.
func (s *Service) TicketByChannel(ctx context.Context, guildID string, channelID string) (*entities.Ticket, error) {
	t, err := s.tickets.GetTicketByChannel(ctx, guildID, channelID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return nil, newNotFoundErr("no ticket is bound to this channel")
		}
		return nil, fmt.Errorf("error loading ticket: %w", err)
	}
	return t, nil
}

// TicketByID loads a ticket by its identifier.
func (s *Service) TicketByID(ctx context.Context, id string) (*entities.Ticket, error) {
	t, err := s.tickets.GetTicketByID(ctx, id)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return nil, newNotFoundErr("ticket %s no longer exists", id)
		}
		return nil, fmt.Errorf("error loading ticket: %w", err)
	}
	return t, nil
}

// save persists a mutated ticket. A version conflict means another
// transition won the race; the caller's mutation is discarded.
func (s *Service) save(ctx context.Context, t *entities.Ticket) error {
	t.UpdatedAt = custom.Datetime(s.now())
	if err := s.tickets.SaveTicket(ctx, t); err != nil {
		if errors.Is(err, dataaccess.ErrVersionConflict) {
			return newStateErr("the ticket changed while this action was running, try again")
		}
		return fmt.Errorf("error saving ticket: %w", err)
	}
	return nil
}

// channelName derives a ticket channel's display name from its state:
// lifecycle markers, then the zero-padded index joined to the creator name.
func (s *Service) channelName(t *entities.Ticket, p *panels.Panel, a *panels.Action, expiring bool) string {
	var b strings.Builder
	if expiring {
		b.WriteString(markerExpiring)
	}
	if t.EscalationLevel > 0 {
		b.WriteString(markerEscalated)
	}
	if t.Claimed {
		b.WriteString(markerClaimed)
	}
	b.WriteString(t.Name(panels.ResolveJoinStr(p, a, t.ServerIdentifier)))
	return b.String()
}

// refreshChannelName renames the ticket channel to match its current state.
// Rename failures are reported but do not fail the transition that caused
// them; the record is already saved.
func (s *Service) refreshChannelName(ctx context.Context, t *entities.Ticket, p *panels.Panel, a *panels.Action) {
	expiring := false
	if settings, err := s.settings.GetSettings(ctx, t.GuildID); err == nil {
		expiring = settings.ExpireEntryFor(t.ChannelID) != nil
	}

	if err := s.platform.RenameChannel(ctx, t.ChannelID, s.channelName(t, p, a, expiring)); err != nil {
		s.l.Warn("error renaming ticket channel",
			slog.String(logging.KeyChannelID, t.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// stripMarkers removes lifecycle markers from a channel name. The result
// names companion artifacts such as the support voice channel.
func stripMarkers(name string) string {
	for _, m := range []string{markerClaimed, markerEscalated, markerExpiring, markerVoice} {
		name = strings.ReplaceAll(name, m, "")
	}
	return strings.TrimSpace(name)
}

// FormValue is one submitted form field.
type FormValue struct {
	Label string
	Value string
}

// headerNotice builds the pinned ticket header: the creation embed, the
// submitted form values, and the lifecycle control buttons.
func (s *Service) headerNotice(t *entities.Ticket, p *panels.Panel, a *panels.Action, values []FormValue) Notice {
	header := &Embed{
		Title: fmt.Sprintf("%s | %s", p.Identifier, a.ButtonName()),
		Color: p.Embed.Color,
		Fields: []Field{
			{Name: "Opened by", Value: mention(t.UserID)},
			{Name: "Ticket", Value: fmt.Sprintf("#%04d", t.Index)},
		},
	}
	if t.ServerIdentifier != "" {
		header.Fields = append(header.Fields, Field{Name: "Server", Value: t.ServerIdentifier})
	}

	embeds := []*Embed{header}
	if len(values) > 0 {
		form := &Embed{Title: "Submitted details", Color: p.Embed.Color}
		for _, v := range values {
			val := v.Value
			if val == "" {
				val = "-"
			}
			form.Fields = append(form.Fields, Field{Name: v.Label, Value: val})
		}
		embeds = append(embeds, form)
	}

	buttons := []Button{
		{ID: CustomID(IDClaim, t.ID), Label: "Claim", Style: StyleSuccess},
		{ID: CustomID(IDUnclaim, t.ID), Label: "Unclaim", Style: StyleSecondary},
		{ID: CustomID(IDClose, t.ID), Label: "Close", Style: StyleDanger},
		{ID: CustomID(IDRequestClose, t.ID), Label: "Request Close", Style: StyleSecondary},
		{ID: CustomID(IDExpire, t.ID), Label: "Auto Expire", Emoji: markerExpiring, Style: StyleSecondary},
	}
	if len(p.EscalationRoleIDs) > 0 {
		buttons = append(buttons,
			Button{ID: CustomID(IDEscalate, t.ID), Label: "Escalate", Emoji: markerEscalated, Style: StylePrimary},
			Button{ID: CustomID(IDDeescalate, t.ID), Label: "De-escalate", Style: StyleSecondary},
		)
	}
	if p.HasDedicatedSupportVCs {
		buttons = append(buttons, Button{ID: CustomID(IDSupportVC, t.ID), Label: "Support VC", Emoji: markerVoice, Style: StyleSecondary})
	}

	content := ""
	if msg := panels.ResolveString(panels.KeyCreationMessage, p, a, t.ServerIdentifier); msg != "" {
		content = strings.ReplaceAll(msg, "{@member}", mention(t.UserID))
	}
	if panels.ResolveBool(panels.KeyPingOnCreation, p, a, t.ServerIdentifier) {
		for _, roleID := range panels.ResolveRoles(p, a, t.ServerIdentifier) {
			content += " " + roleMention(roleID)
		}
		content = strings.TrimSpace(content)
	}

	return Notice{
		Content: content,
		Embeds:  embeds,
		Buttons: buttons,
	}
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func roleMention(roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}
