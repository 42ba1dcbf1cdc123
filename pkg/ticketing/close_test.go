package ticketing

import (
	"context"
	"testing"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/stretchr/testify/require"
)

func TestClose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	require.NoError(t, env.svc.Close(ctx, ticket.ID, "S1", "resolved"))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Equal(t, "S1", stored.ClosedBy)
	require.Equal(t, "resolved", stored.Reason)

	// One transcript, a DM to the creator carrying it, a log event with the
	// file attached, and the channel gone.
	require.Equal(t, 1, env.transcriber.callCount())
	require.Len(t, env.platform.dms["U1"], 1)
	require.NotEmpty(t, env.platform.dms["U1"][0].Files)
	require.Contains(t, env.platform.deletedChannels(), ticket.ChannelID)

	logSends := env.platform.sendsTo("LOG")
	closedLog := logSends[len(logSends)-1]
	require.NotEmpty(t, closedLog.notice.Files)
}

func TestClose_ExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	require.NoError(t, env.svc.Close(ctx, ticket.ID, "S1", ""))

	err := env.svc.Close(ctx, ticket.ID, "S2", "")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)

	// No second transcript and no second channel deletion.
	require.Equal(t, 1, env.transcriber.callCount())
	require.Len(t, env.platform.deletedChannels(), 1)

	stored, getErr := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, getErr)
	require.Equal(t, "S1", stored.ClosedBy)
}

func TestClose_TranscriptFailureStillCloses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.transcriber.fail = true
	ticket := env.create(t, "U1", "wolf")

	require.NoError(t, env.svc.Close(ctx, ticket.ID, "S1", ""))

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Contains(t, env.platform.deletedChannels(), ticket.ChannelID)
}

func TestClose_DeleteFailureKeepsRecordClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")
	env.platform.failDelete = true

	err := env.svc.Close(ctx, ticket.ID, "S1", "")
	var extErr *ExternalError
	require.ErrorAs(t, err, &extErr)

	stored, getErr := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, getErr)
	require.True(t, stored.Closed, "a lingering channel does not reopen the record")
}

// offerWhenWaiting feeds an event to the dispatcher once the dialog that
// expects it has registered.
func offerWhenWaiting(t *testing.T, env *testEnv, ev dialog.Event) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if env.dialogs.Offer(ev) {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

func TestCloseWithPrompt_WithoutReasonButton(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	offerWhenWaiting(t, env, dialog.Event{
		Kind:     dialog.KindButton,
		CustomID: CustomID(IDCloseWithoutReason, ticket.ID),
		UserID:   "S1",
	})

	closed, err := env.svc.CloseWithPrompt(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.True(t, closed)

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Empty(t, stored.Reason)
}

func TestCloseWithPrompt_FreeTextReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	offerWhenWaiting(t, env, dialog.Event{
		Kind:      dialog.KindMessage,
		ChannelID: ticket.ChannelID,
		UserID:    "S1",
		Content:   "duplicate of another ticket",
	})

	closed, err := env.svc.CloseWithPrompt(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.True(t, closed)

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, "duplicate of another ticket", stored.Reason)
}

func TestCloseWithPrompt_Cancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	offerWhenWaiting(t, env, dialog.Event{
		Kind:     dialog.KindButton,
		CustomID: CustomID(IDCloseCancel, ticket.ID),
		UserID:   "S1",
	})

	closed, err := env.svc.CloseWithPrompt(ctx, ticket.ID, "S1")
	require.NoError(t, err)
	require.False(t, closed)

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.False(t, stored.Closed)
	require.Zero(t, env.transcriber.callCount())

	// The prompt message is cleaned up either way.
	require.NotEmpty(t, env.platform.deletedMsgs)
}

func TestRequestClose_Accept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	// Only the creator's button resolves the dialog.
	offerWhenWaiting(t, env, dialog.Event{
		Kind:     dialog.KindButton,
		CustomID: CustomID(IDCloseAccept, ticket.ID),
		UserID:   "U1",
	})

	closed, err := env.svc.RequestClose(ctx, ticket.ID, "S1", "all sorted")
	require.NoError(t, err)
	require.True(t, closed)

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Equal(t, "S1", stored.ClosedBy)
	require.Equal(t, "all sorted", stored.Reason)
}

func TestRequestClose_Decline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	offerWhenWaiting(t, env, dialog.Event{
		Kind:     dialog.KindButton,
		CustomID: CustomID(IDCloseDecline, ticket.ID),
		UserID:   "U1",
	})

	closed, err := env.svc.RequestClose(ctx, ticket.ID, "S1", "")
	require.NoError(t, err)
	require.False(t, closed)

	stored, err := env.tickets.GetTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.False(t, stored.Closed)
}

func TestRequestClose_StrangerCannotResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.create(t, "U1", "wolf")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Another user's accept never matches the creator-scoped
		// expectation.
		deadline := time.Now().Add(200 * time.Millisecond)
		for time.Now().Before(deadline) {
			if env.dialogs.Offer(dialog.Event{
				Kind:     dialog.KindButton,
				CustomID: CustomID(IDCloseAccept, ticket.ID),
				UserID:   "S2",
			}) {
				t.Error("accept from a non-creator was consumed")
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		env.dialogs.Offer(dialog.Event{
			Kind:     dialog.KindButton,
			CustomID: CustomID(IDCloseDecline, ticket.ID),
			UserID:   "U1",
		})
	}()

	closed, err := env.svc.RequestClose(ctx, ticket.ID, "S1", "")
	require.NoError(t, err)
	require.False(t, closed)
	<-done
}
