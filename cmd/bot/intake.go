package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/messages"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Jacobbrewer1/discordgo"
	"github.com/google/uuid"
)

// modal limits imposed by the platform.
const (
	maxModalTitleLen = 45
	maxLabelLen      = 45
)

func ticketActionCustomID(panelID, actionID string) string {
	return ticketing.CustomID(ticketing.IDPanelAction, panelID, actionID)
}

// ticketActionButtonHandler starts intake when a panel action button is
// pressed. Depending on the panel it hops through a server selection, a
// form, or goes straight to a channel.
func ticketActionButtonHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, parts, _ := ticketing.ParseCustomID(i.MessageComponentData().CustomID)
	if len(parts) != 2 {
		return fmt.Errorf("malformed action custom ID %q", i.MessageComponentData().CustomID)
	}
	panelID, actionID := parts[0], parts[1]

	if !a.AllowIntake(interactionUserID(i)) {
		IntakeRateLimited.Inc()
		return respondSlashEphemeral(a, i, messages.ErrIntakeRateLimited)
	}

	panel, ok := a.Panels().PanelByID(panelID)
	if !ok {
		return fmt.Errorf("panel %q is not configured", panelID)
	}
	action, ok := panel.ActionByID(actionID)
	if !ok {
		return fmt.Errorf("action %q is not configured on panel %q", actionID, panelID)
	}

	if panel.SelectServer && panel.Server == "" {
		return respondServerSelect(a, i, panel, action)
	}
	return startIntake(a, i, panel, action, panel.Server)
}

// respondServerSelect asks which server the ticket concerns before the form
// opens.
func respondServerSelect(a IApp, i *discordgo.InteractionCreate, panel *panels.Panel, action *panels.Action) error {
	servers := panel.SelectableServers()
	options := make([]discordgo.SelectMenuOption, 0, len(servers))
	for _, server := range servers {
		options = append(options, discordgo.SelectMenuOption{
			Label: server,
			Value: server,
		})
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: messages.SelectServerPrompt,
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							CustomID: ticketing.CustomID(ticketing.IDServerSelect, panel.ID, action.ID),
							Options:  options,
						},
					},
				},
			},
		},
	})
}

func serverSelectHandler(a IApp, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	_, parts, _ := ticketing.ParseCustomID(data.CustomID)
	if len(parts) != 2 || len(data.Values) != 1 {
		return fmt.Errorf("malformed server selection %q", data.CustomID)
	}

	panel, ok := a.Panels().PanelByID(parts[0])
	if !ok {
		return fmt.Errorf("panel %q is not configured", parts[0])
	}
	action, ok := panel.ActionByID(parts[1])
	if !ok {
		return fmt.Errorf("action %q is not configured on panel %q", parts[1], parts[0])
	}

	return startIntake(a, i, panel, action, data.Values[0])
}

// startIntake opens the action's form, or creates the ticket straight away
// when the action has none.
func startIntake(a IApp, i *discordgo.InteractionCreate, panel *panels.Panel, action *panels.Action, server string) error {
	pf := &pendingForm{
		GuildID:  i.GuildID,
		PanelID:  panel.ID,
		ActionID: action.ID,
		Server:   server,
		UserID:   interactionUserID(i),
		Username: interactionUsername(i),
	}

	if len(action.FormEntries) == 0 {
		return createTicket(a, i, pf, action)
	}

	token := uuid.NewString()
	a.PendingForms().Set(token, pf)
	return respondFormModal(a, i, token, pf, action)
}

// respondFormModal opens the modal for the pending form's current page.
func respondFormModal(a IApp, i *discordgo.InteractionCreate, token string, pf *pendingForm, action *panels.Action) error {
	entries := page(action.FormEntries, pf.Step)
	if len(entries) == 0 {
		return fmt.Errorf("form page %d is out of range", pf.Step)
	}

	steamIdx := action.SteamEntryIndex()
	rows := make([]discordgo.MessageComponent, 0, len(entries))
	for n, entry := range entries {
		style := discordgo.TextInputShort
		if entry.Long {
			style = discordgo.TextInputParagraph
		}

		input := discordgo.TextInput{
			CustomID:    fmt.Sprintf("%d", pf.Step*formPageSize+n),
			Label:       truncate(entry.Label, maxLabelLen),
			Style:       style,
			Placeholder: entry.Placeholder,
			Required:    entry.Required,
			MinLength:   entry.MinLength,
			MaxLength:   entry.MaxLength,
		}
		if pf.Step*formPageSize+n == steamIdx {
			input.Value = steamPrefill(context.Background(), a, panelOf(a, pf), pf.UserID)
		}

		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{input},
		})
	}

	title := truncate(action.ButtonName(), maxModalTitleLen)
	if total := pages(action.FormEntries); total > 1 {
		title = truncate(fmt.Sprintf("%s (%d/%d)", action.ButtonName(), pf.Step+1, total), maxModalTitleLen)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   ticketing.CustomID(ticketing.IDModal, token),
			Title:      title,
			Components: rows,
		},
	})
}

// formPageSubmitHandler records a submitted modal page. When pages remain
// the user gets a Continue button; the final page completes the form.
func formPageSubmitHandler(a IApp, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	_, parts, _ := ticketing.ParseCustomID(data.CustomID)
	if len(parts) != 1 {
		return fmt.Errorf("malformed modal custom ID %q", data.CustomID)
	}
	token := parts[0]

	pf, ok := a.PendingForms().Get(token)
	if !ok {
		return respondSlashEphemeral(a, i, "This form has expired, please start again")
	}
	action, err := actionOf(a, pf)
	if err != nil {
		return err
	}

	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			input, ok := component.(*discordgo.TextInput)
			if !ok {
				continue
			}
			pf.Values = append(pf.Values, input.Value)
		}
	}
	pf.Step++

	if pf.Step < pages(action.FormEntries) {
		a.PendingForms().Set(token, pf)
		return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: messages.ContinueFormPrompt,
				Flags:   discordgo.MessageFlagsEphemeral,
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{
						Components: []discordgo.MessageComponent{
							discordgo.Button{
								Label:    "Continue",
								Style:    discordgo.PrimaryButton,
								Emoji:    discordgo.ComponentEmoji{},
								CustomID: ticketing.CustomID(ticketing.IDFormContinue, token),
							},
						},
					},
				},
			},
		})
	}

	a.PendingForms().Delete(token)

	if pf.TicketID != "" {
		// A switch form resolves the dialog the engine is waiting on rather
		// than opening a new ticket.
		a.Dialogs().Offer(dialog.Event{
			Kind:     dialog.KindForm,
			CustomID: ticketing.CustomID(ticketing.IDSwitchForm, pf.TicketID),
			UserID:   pf.UserID,
			Values:   pf.Values,
		})
		return respondSlashEphemeral(a, i, "Details received, the ticket is being updated")
	}

	return createTicket(a, i, pf, action)
}

// formContinueHandler re-opens the modal at the pending form's next page.
func formContinueHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, parts, _ := ticketing.ParseCustomID(i.MessageComponentData().CustomID)
	if len(parts) != 1 {
		return fmt.Errorf("malformed continue custom ID %q", i.MessageComponentData().CustomID)
	}
	token := parts[0]

	pf, ok := a.PendingForms().Get(token)
	if !ok {
		return respondSlashEphemeral(a, i, "This form has expired, please start again")
	}
	action, err := actionOf(a, pf)
	if err != nil {
		return err
	}
	return respondFormModal(a, i, token, pf, action)
}

// switchFormButtonHandler opens the fresh form for an in-flight action
// switch. Only the ticket creator holds the pending form.
func switchFormButtonHandler(a IApp, i *discordgo.InteractionCreate) error {
	_, parts, _ := ticketing.ParseCustomID(i.MessageComponentData().CustomID)
	if len(parts) != 1 {
		return fmt.Errorf("malformed switch form custom ID %q", i.MessageComponentData().CustomID)
	}
	token := switchFormKey(parts[0])

	pf, ok := a.PendingForms().Get(token)
	if !ok {
		return respondSlashEphemeral(a, i, "This form has expired, please start again")
	}
	if interactionUserID(i) != pf.UserID {
		return respondSlashEphemeral(a, i, messages.ErrNotPermitted)
	}
	action, err := actionOf(a, pf)
	if err != nil {
		return err
	}
	return respondFormModal(a, i, token, pf, action)
}

// createTicket runs the engine intake and confirms to the user.
func createTicket(a IApp, i *discordgo.InteractionCreate, pf *pendingForm, action *panels.Action) error {
	ticket, err := a.Ticketing().CreateTicket(context.Background(), ticketing.CreateParams{
		GuildID:          pf.GuildID,
		PanelID:          pf.PanelID,
		ActionID:         pf.ActionID,
		ServerIdentifier: pf.Server,
		UserID:           pf.UserID,
		Username:         pf.Username,
		FormValues:       pf.formValues(action.FormEntries),
	})
	if err != nil {
		if ticket == nil {
			return respondUserError(a, i, err)
		}
		// The ticket exists but part of its setup failed; the user gets
		// told, not shielded.
		a.Log().Warn("Ticket created with degraded setup",
			slog.String(logging.KeyTicketID, ticket.ID),
			slog.String(logging.KeyError, err.Error()))
	}

	return respondSlashEphemeral(a, i, createTicketReply(ticket.ChannelID, err))
}

// createTicketReply picks the confirmation for an intake: plain success, or
// success with the piece that failed spelled out.
func createTicketReply(channelID string, err error) string {
	if err != nil {
		return fmt.Sprintf(messages.TicketCreatedDegraded, channelMention(channelID), err.Error())
	}
	return fmt.Sprintf(messages.TicketCreated, channelMention(channelID))
}

// panelOf and actionOf resolve a pending form's configuration references.
func panelOf(a IApp, pf *pendingForm) *panels.Panel {
	panel, _ := a.Panels().PanelByID(pf.PanelID)
	return panel
}

func actionOf(a IApp, pf *pendingForm) (*panels.Action, error) {
	panel, ok := a.Panels().PanelByID(pf.PanelID)
	if !ok {
		return nil, fmt.Errorf("panel %q is not configured", pf.PanelID)
	}
	action, ok := panel.ActionByID(pf.ActionID)
	if !ok {
		return nil, fmt.Errorf("action %q is not configured on panel %q", pf.ActionID, pf.PanelID)
	}
	return action, nil
}

func channelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
