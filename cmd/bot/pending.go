package main

import (
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
)

// pendingFormTTL bounds how long a started form may sit unfinished. It
// matches the window an action switch waits for its fresh form.
const pendingFormTTL = 48 * time.Hour

// formPageSize is how many inputs one modal can carry.
const formPageSize = 5

// pendingForm is the state of a form that spans modal pages. Discord cannot
// chain one modal straight into another, so between pages the user gets a
// Continue button and the collected values wait here under a token.
type pendingForm struct {
	// GuildID, PanelID and ActionID locate the form's action.
	GuildID  string
	PanelID  string
	ActionID string

	// Server is the selected server identifier, when the panel offers a
	// choice.
	Server string

	// UserID and Username identify the user filling the form.
	UserID   string
	Username string

	// TicketID is set when the form re-targets an existing ticket instead
	// of opening a new one.
	TicketID string

	// Step is the next page to show.
	Step int

	// Values are the collected inputs, one per form entry, in entry order.
	Values []string
}

// page returns the form entries on the given page.
func page(entries []*panels.FormEntry, step int) []*panels.FormEntry {
	start := step * formPageSize
	if start >= len(entries) {
		return nil
	}
	end := start + formPageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

// pages returns how many modal pages the entries need.
func pages(entries []*panels.FormEntry) int {
	return (len(entries) + formPageSize - 1) / formPageSize
}

// formValues pairs the collected raw values with their entry labels.
func (pf *pendingForm) formValues(entries []*panels.FormEntry) []ticketing.FormValue {
	values := make([]ticketing.FormValue, 0, len(entries))
	for i, entry := range entries {
		v := ""
		if i < len(pf.Values) {
			v = pf.Values[i]
		}
		values = append(values, ticketing.FormValue{Label: entry.Label, Value: v})
	}
	return values
}

// switchFormKey is the pending form token for an action switch on the given
// ticket. The prompt button only carries the ticket ID, so the token has to
// be derivable from it. The token rides inside modal custom IDs, so it must
// not contain the custom ID separator.
func switchFormKey(ticketID string) string {
	return "switch-" + ticketID
}
