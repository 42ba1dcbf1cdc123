package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/custom"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/google/uuid"
)

// CreateParams is an intake request. The form values have already been
// collected by the interaction layer; the engine turns them into a channel
// and a ticket record.
type CreateParams struct {
	GuildID  string
	PanelID  string
	ActionID string

	// ServerIdentifier is the selected game server, when the panel offers a
	// choice. Ignored when the panel fixes one.
	ServerIdentifier string

	UserID   string
	Username string

	FormValues []FormValue
}

// CreateTicket runs the intake workflow: it resolves the configuration,
// draws a sequence index, creates the private channel, persists the ticket,
// and posts the pinned header with the lifecycle controls.
func (s *Service) CreateTicket(ctx context.Context, params CreateParams) (*entities.Ticket, error) {
	p, ok := s.panels.PanelByID(params.PanelID)
	if !ok {
		return nil, newConfigErr("panel %q is no longer configured, re-deploy the ticket panels", params.PanelID)
	}
	a, ok := p.ActionByID(params.ActionID)
	if !ok {
		return nil, newConfigErr("action %q is no longer configured on panel %q, re-deploy the ticket panels", params.ActionID, params.PanelID)
	}

	server := params.ServerIdentifier
	if p.Server != "" {
		server = p.Server
	}

	categoryID := panels.ResolveString(panels.KeyCategoryID, p, a, server)
	if categoryID == "" {
		return nil, newConfigErr("no ticket category is configured for %q / %q", p.Identifier, a.ButtonName())
	}

	if err := s.recordSteamID(ctx, params.UserID, a, params.FormValues); err != nil {
		// The ticket is worth more than the identity bookkeeping.
		s.l.Warn("error recording user steam id", slog.String(logging.KeyError, err.Error()))
	}

	index, err := s.tickets.NextTicketIndex(ctx, params.GuildID, p.ID, a.ID)
	if err != nil {
		return nil, fmt.Errorf("error drawing ticket index: %w", err)
	}

	t := &entities.Ticket{
		ID:               uuid.NewString(),
		GuildID:          params.GuildID,
		PanelID:          p.ID,
		ActionID:         a.ID,
		UserID:           params.UserID,
		Username:         params.Username,
		ServerIdentifier: server,
		Index:            index,
		CreatedAt:        custom.Datetime(s.now()),
		UpdatedAt:        custom.Datetime(s.now()),
	}

	roleIDs := panels.ResolveRoles(p, a, server)
	channelID, err := s.platform.CreateChannel(ctx, params.GuildID, ChannelParams{
		Name:       s.channelName(t, p, a, false),
		Topic:      fmt.Sprintf("%s | %s", p.Identifier, a.ButtonName()),
		CategoryID: categoryID,
		UserIDs:    []string{params.UserID},
		RoleIDs:    roleIDs,
	})
	if err != nil {
		return nil, newExternalErr("error creating ticket channel", err)
	}
	t.ChannelID = channelID

	if err := s.tickets.CreateTicket(ctx, t); err != nil {
		// The channel exists but the record does not; tear the channel down
		// rather than leave an orphan nobody can act on.
		if delErr := s.platform.DeleteChannel(ctx, channelID, "ticket record could not be created"); delErr != nil {
			s.l.Error("error deleting orphaned ticket channel",
				slog.String(logging.KeyChannelID, channelID),
				slog.String(logging.KeyError, delErr.Error()),
			)
		}
		return nil, fmt.Errorf("error persisting ticket: %w", err)
	}

	TicketTransitions.WithLabelValues("created").Inc()
	s.logEvent(ctx, t, p, a, sinkEvent{verb: "Created", emoji: "🎫"})

	// From here on the ticket and channel exist; a header failure leaves a
	// working channel without its controls and is surfaced, not rolled back.
	headerID, err := s.platform.Send(ctx, channelID, s.headerNotice(t, p, a, params.FormValues))
	if err != nil {
		return t, newExternalErr("ticket created, but posting the control message failed", err)
	}
	if err := s.platform.Pin(ctx, channelID, headerID); err != nil {
		s.l.Warn("error pinning ticket header",
			slog.String(logging.KeyChannelID, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	t.HeaderMessageID = headerID
	if err := s.save(ctx, t); err != nil {
		return t, fmt.Errorf("error recording header message: %w", err)
	}

	return t, nil
}

// recordSteamID stores the submitted identity field on the user record when
// the user has none on file yet.
func (s *Service) recordSteamID(ctx context.Context, userID string, a *panels.Action, values []FormValue) error {
	idx := a.SteamEntryIndex()
	if idx < 0 || idx >= len(values) || values[idx].Value == "" {
		return nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, dataaccess.ErrNotFound) {
			return fmt.Errorf("error loading user: %w", err)
		}
		user = &entities.User{
			DiscordID: userID,
			CreatedAt: custom.Datetime(s.now()),
		}
	}
	if user.SteamID != "" {
		return nil
	}

	user.SteamID = values[idx].Value
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("error saving user: %w", err)
	}
	return nil
}

// StoredSteamID returns the user's stored identity value for form
// pre-filling, or empty when none is on file.
func (s *Service) StoredSteamID(ctx context.Context, userID string) string {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.SteamID
}
