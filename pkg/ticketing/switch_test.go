package ticketing

import (
	"context"
	"testing"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/stretchr/testify/require"
)

func TestSwitchAction_ResetsLifecycleState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	// Work the ticket into a claimed, escalated, expiring state first.
	_, err := env.svc.Claim(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	_, err = env.svc.Escalate(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	_, err = env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	// The target action has no form entries, so the switch is immediate.
	require.NoError(t, env.svc.SwitchAction(ctx, ticket.ID, "S1", "reports", "player-report", ""))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, "reports", stored.PanelID)
	require.Equal(t, "player-report", stored.ActionID)
	require.False(t, stored.Claimed)
	require.Empty(t, stored.ClaimedBy)
	require.Zero(t, stored.EscalationLevel)

	// A fresh index under the new (panel, action) counter.
	require.Equal(t, 1, stored.Index)

	// Permissions rebuilt from the new action's baseline; the escalation
	// grant is gone.
	require.Equal(t, []string{"R9"}, env.platform.perms[ticket.ChannelID])

	// The pending expiry did not survive the switch.
	require.False(t, env.sched.Active(ticket.ChannelID))
	settings, err := env.settings.GetSettings(ctx, "G1")
	require.NoError(t, err)
	require.Nil(t, settings.ExpireEntryFor(ticket.ChannelID))

	// Old header unpinned, new one pinned and recorded.
	require.Contains(t, env.platform.unpins, ticket.HeaderMessageID)
	require.Equal(t, stored.HeaderMessageID, env.platform.pins[len(env.platform.pins)-1])
	require.NotEqual(t, ticket.HeaderMessageID, stored.HeaderMessageID)

	// Channel renamed for the new identity and re-topic'd.
	require.Equal(t, "0001-wolf", env.platform.renames[ticket.ChannelID])
	require.Contains(t, env.platform.topics[ticket.ChannelID], "Reports")
}

func TestSwitchAction_CollectsFormFromCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	offerWhenWaiting(t, env, dialog.Event{
		Kind:     dialog.KindForm,
		CustomID: CustomID(IDSwitchForm, ticket.ID),
		UserID:   "U1",
		Values:   []string{"76561198000000001", "wrongly banned"},
	})

	require.NoError(t, env.svc.SwitchAction(ctx, ticket.ID, "S1", "support", "ban-appeal", ""))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, "ban-appeal", stored.ActionID)

	// The new header carries the collected values.
	sends := env.platform.sendsTo(ticket.ChannelID)
	header := sends[len(sends)-1]
	require.Len(t, header.notice.Embeds, 2)
	require.Equal(t, "wrongly banned", header.notice.Embeds[1].Fields[1].Value)
}

func TestSwitchAction_FormTimeoutAbortsSwitch(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	ticket := env.create(t, "U1", "wolf")

	// Cancelling the context stands in for the 48 hour expiry.
	cancel()
	err := env.svc.SwitchAction(ctx, ticket.ID, "S1", "support", "ban-appeal", "")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)

	stored, getErr := env.tickets.GetTicketByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	require.Equal(t, "general", stored.ActionID, "the ticket is untouched")
	require.Equal(t, 1, stored.Index)
}

func TestSwitchAction_SameActionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	err := env.svc.SwitchAction(ctx, ticket.ID, "S1", "support", "general", "")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestSwitchAction_UnknownTargetIsConfigError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	var cfgErr *ConfigurationError
	err := env.svc.SwitchAction(ctx, ticket.ID, "S1", "gone", "general", "")
	require.ErrorAs(t, err, &cfgErr)
	err = env.svc.SwitchAction(ctx, ticket.ID, "S1", "support", "gone", "")
	require.ErrorAs(t, err, &cfgErr)
}
