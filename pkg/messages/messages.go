package messages

// User facing strings. Everything the bot says in a guild lives here so the
// wording can be reviewed in one place.
const (
	// ErrUserErrorProcessing is shown when a command fails for a reason the
	// user cannot fix.
	ErrUserErrorProcessing = "Something went wrong processing that, please try again"

	// ErrNotPermitted is shown when the user may not perform the action.
	ErrNotPermitted = "You are not permitted to do that"

	// ErrTicketNotFound is shown when the channel is not a ticket channel.
	ErrTicketNotFound = "This channel is not an open ticket"

	// ErrIntakeRateLimited is shown when the user is opening tickets too
	// quickly.
	ErrIntakeRateLimited = "You are opening tickets too quickly, please wait a moment"

	// TicketCreated confirms ticket creation; takes the channel mention.
	TicketCreated = "Your ticket has been created: %s"

	// TicketCreatedDegraded confirms creation that only partly succeeded;
	// takes the channel mention and what went wrong.
	TicketCreatedDegraded = "Your ticket has been created: %s, but part of its setup failed: %s"

	// CloseRequested confirms that the creator has been asked to close.
	CloseRequested = "The ticket creator has been asked to confirm closing this ticket"

	// ClosePromptSent confirms that the close prompt has been posted.
	ClosePromptSent = "Reply with a reason, close without one, or cancel"

	// SelectServerPrompt asks which server the ticket concerns.
	SelectServerPrompt = "Which server is this about?"

	// ContinueFormPrompt asks the user to continue a multi page form.
	ContinueFormPrompt = "Your form has more fields, press Continue for the next page"
)
