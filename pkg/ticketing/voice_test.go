package ticketing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggleSupportVC(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.Claim(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	_, err = env.svc.Escalate(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	// First toggle creates the companion channel, mirroring the ticket's
	// current grants including the escalation role.
	withVC, err := env.svc.ToggleSupportVC(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.NotEmpty(t, withVC.VoiceChannelID)

	require.Len(t, env.platform.channels, 2)
	vc := env.platform.channels[1]
	require.True(t, vc.params.Voice)
	require.Equal(t, markerVoice+"0001-wolf", vc.params.Name)
	require.Equal(t, []string{"U1"}, vc.params.UserIDs)
	require.Equal(t, []string{"R1", "R2"}, vc.params.RoleIDs)

	// Second toggle tears it down and clears the relation.
	withoutVC, err := env.svc.ToggleSupportVC(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.Empty(t, withoutVC.VoiceChannelID)
	require.Contains(t, env.platform.deletedChannels(), withVC.VoiceChannelID)
}

func TestToggleSupportVC_RequiresPanelFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket, err := env.svc.CreateTicket(ctx, CreateParams{
		GuildID:  "G1",
		PanelID:  "reports",
		ActionID: "player-report",
		UserID:   "U1",
		Username: "wolf",
	})
	require.NoError(t, err)

	_, err = env.svc.ToggleSupportVC(ctx, ticket.ID, "S1")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClose_DeletesCompanionVC(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	withVC, err := env.svc.ToggleSupportVC(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	require.NoError(t, env.svc.Close(ctx, ticket.ID, "S1", ""))
	require.Contains(t, env.platform.deletedChannels(), withVC.VoiceChannelID)
	require.Contains(t, env.platform.deletedChannels(), ticket.ChannelID)
}
