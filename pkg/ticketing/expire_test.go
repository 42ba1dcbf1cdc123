package ticketing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	// The due time is durable and the in-process timer is armed.
	settings, err := env.settings.GetSettings(ctx, "G1")
	require.NoError(t, err)
	entry := settings.ExpireEntryFor(ticket.ChannelID)
	require.NotNil(t, entry)
	require.Equal(t, ticket.ID, entry.TicketID)
	require.Equal(t, env.clock.Add(expireDelay), entry.ExpireAt.Time())
	require.True(t, env.sched.Active(ticket.ChannelID))

	// The channel is visually marked.
	require.Equal(t, markerExpiring+"0001-wolf", env.platform.renames[ticket.ChannelID])

	// A second request while one is pending is rejected.
	_, err = env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
}

func TestCancelExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.CancelExpiry(ctx, ticket.ID, "S1")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr, "nothing to cancel")

	_, err = env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.True(t, env.svc.ExpiryScheduled(ctx, ticket))

	_, err = env.svc.CancelExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.False(t, env.svc.ExpiryScheduled(ctx, ticket))
	require.False(t, env.sched.Active(ticket.ChannelID))
	require.Equal(t, "0001-wolf", env.platform.renames[ticket.ChannelID])
}

// Scenario: expiry scheduled, then the ticket is closed manually well before
// the due time. The pending timer must not re-close or error when it fires,
// and a reconciliation run in between must take no action beyond dropping
// the stale entry.
func TestExpiry_ManualCloseFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	env.clock = env.clock.Add(10 * time.Minute)
	require.NoError(t, env.svc.Close(ctx, ticket.ID, "S1", "resolved"))

	// Manual close dropped both the entry and the timer.
	settings, err := env.settings.GetSettings(ctx, "G1")
	require.NoError(t, err)
	require.Nil(t, settings.ExpireEntryFor(ticket.ChannelID))
	require.False(t, env.sched.Active(ticket.ChannelID))

	// Even if the timer had somehow survived, the deferred close is a
	// no-op on a closed ticket.
	require.NoError(t, env.svc.expireNow(ctx, ticket.ID))
	require.Equal(t, 1, env.transcriber.callCount())
	require.Len(t, env.platform.deletedChannels(), 1)

	// A reconciliation pass between close and the original due time sees a
	// closed ticket and does nothing.
	require.NoError(t, env.svc.ReconcileExpiries(ctx))
	require.Equal(t, 1, env.transcriber.callCount())
	require.Len(t, env.platform.deletedChannels(), 1)
}

func TestReconcile_ForceClosesOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	// Simulate a restart: the timer is gone, the durable entry is not, and
	// the due time has passed.
	env.sched.Cancel(ticket.ChannelID)
	env.clock = env.clock.Add(expireDelay + time.Hour)

	require.NoError(t, env.svc.ReconcileExpiries(ctx))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Equal(t, autoExpireActor, stored.ClosedBy)

	settings, err := env.settings.GetSettings(ctx, "G1")
	require.NoError(t, err)
	require.Nil(t, settings.ExpireEntryFor(ticket.ChannelID))
}

func TestReconcile_SweepSaveKeepsMidSweepRemovals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// One entry whose ticket vanished forces a settings save at the end of
	// the sweep; the other is overdue and is dropped mid-sweep by its close.
	// The final save must not bring the dropped entry back.
	gone := env.create(t, "U1", "wolf")
	overdue := env.create(t, "U2", "fox")
	_, err := env.svc.RequestExpiry(ctx, gone.ID, "S1")
	require.NoError(t, err)
	_, err = env.svc.RequestExpiry(ctx, overdue.ID, "S1")
	require.NoError(t, err)

	env.tickets.mu.Lock()
	delete(env.tickets.byID, gone.ID)
	env.tickets.mu.Unlock()

	env.sched.Cancel(gone.ChannelID)
	env.sched.Cancel(overdue.ChannelID)
	env.clock = env.clock.Add(expireDelay + time.Hour)

	require.NoError(t, env.svc.ReconcileExpiries(ctx))

	stored, err := env.tickets.GetTicketByID(ctx, overdue.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)

	settings, err := env.settings.GetSettings(ctx, "G1")
	require.NoError(t, err)
	require.Empty(t, settings.AutoExpire)
}

func TestReconcile_RearmsFutureEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	// Restart: timer lost, entry still in the future.
	env.sched.Cancel(ticket.ChannelID)
	env.clock = env.clock.Add(time.Hour)

	require.NoError(t, env.svc.ReconcileExpiries(ctx))
	require.True(t, env.sched.Active(ticket.ChannelID))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.False(t, stored.Closed)
}

func TestReconcile_DropsEntriesForMissingTickets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	_, err := env.svc.RequestExpiry(ctx, ticket.ID, "S1")
	require.NoError(t, err)

	// The ticket record disappears out from under the entry.
	env.tickets.mu.Lock()
	delete(env.tickets.byID, ticket.ID)
	env.tickets.mu.Unlock()

	require.NoError(t, env.svc.ReconcileExpiries(ctx))

	settings, err := env.settings.GetSettings(ctx, "G1")
	require.NoError(t, err)
	require.Empty(t, settings.AutoExpire)
}

func TestExpiry_TimerClosesTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	require.NoError(t, env.svc.expireNow(ctx, ticket.ID))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Equal(t, autoExpireActor, stored.ClosedBy)
	require.NotEmpty(t, stored.Reason)
}
