package main

import (
	"errors"
	"testing"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Jacobbrewer1/discordgo"
	"github.com/stretchr/testify/require"
)

func formEntries(n int) []*panels.FormEntry {
	entries := make([]*panels.FormEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, &panels.FormEntry{Label: string(rune('A' + i))})
	}
	return entries
}

func TestFormPaging(t *testing.T) {
	entries := formEntries(7)

	require.Equal(t, 2, pages(entries))
	require.Len(t, page(entries, 0), 5)
	require.Len(t, page(entries, 1), 2)
	require.Empty(t, page(entries, 2))

	require.Equal(t, "F", page(entries, 1)[0].Label)
}

func TestFormPaging_SinglePage(t *testing.T) {
	entries := formEntries(3)

	require.Equal(t, 1, pages(entries))
	require.Len(t, page(entries, 0), 3)
	require.Empty(t, page(entries, 1))
}

func TestPendingFormValues(t *testing.T) {
	entries := []*panels.FormEntry{
		{Label: "Steam64 ID"},
		{Label: "Why should the ban be lifted?"},
	}
	pf := &pendingForm{Values: []string{"765611", "it was my brother"}}

	values := pf.formValues(entries)
	require.Len(t, values, 2)
	require.Equal(t, "Steam64 ID", values[0].Label)
	require.Equal(t, "765611", values[0].Value)
	require.Equal(t, "it was my brother", values[1].Value)
}

func TestPendingFormValues_ShortSubmission(t *testing.T) {
	entries := formEntries(3)
	pf := &pendingForm{Values: []string{"only one"}}

	values := pf.formValues(entries)
	require.Len(t, values, 3)
	require.Equal(t, "only one", values[0].Value)
	require.Empty(t, values[1].Value)
	require.Empty(t, values[2].Value)
}

func TestSwitchFormTokenSurvivesCustomID(t *testing.T) {
	// The token rides inside modal custom IDs; a separator in it would make
	// the submit parse into extra parts and never reach the waiting switch.
	token := switchFormKey("4f9a1c88-2b1d-4b8e-9c7a-2f6f3d1f0e52")

	kind, parts, ok := ticketing.ParseCustomID(ticketing.CustomID(ticketing.IDModal, token))
	require.True(t, ok)
	require.Equal(t, ticketing.IDModal, kind)
	require.Equal(t, []string{token}, parts)
}

func TestCreateTicketReply(t *testing.T) {
	require.Equal(t, "Your ticket has been created: <#C9>", createTicketReply("C9", nil))

	reply := createTicketReply("C9", errors.New("ticket created, but posting the control message failed"))
	require.Contains(t, reply, "<#C9>")
	require.Contains(t, reply, "posting the control message failed")
}

func TestButtonRows(t *testing.T) {
	buttons := make([]discordgo.MessageComponent, 0, 12)
	for i := 0; i < 12; i++ {
		buttons = append(buttons, discordgo.Button{Label: "b"})
	}

	rows := buttonRows(buttons)
	require.Len(t, rows, 3)
	require.Len(t, rows[0].(discordgo.ActionsRow).Components, 5)
	require.Len(t, rows[1].(discordgo.ActionsRow).Components, 5)
	require.Len(t, rows[2].(discordgo.ActionsRow).Components, 2)
}

func TestButtonRows_Empty(t *testing.T) {
	require.Empty(t, buttonRows(nil))
}
