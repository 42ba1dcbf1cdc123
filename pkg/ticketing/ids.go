package ticketing

import "strings"

// Component custom IDs carry everything a handler needs to re-enter the
// engine; no server-side session object exists for these hops. The format is
// "@kind@part@part...".
const (
	// Intake surfaces.
	IDPanelAction  = "ticket-action"        // panelID, actionID
	IDServerSelect = "ticket-server-select" // panelID, actionID
	IDModal        = "ticket-modal"         // pending form token
	IDFormContinue = "ticket-continue"      // pending form token

	// Lifecycle controls on the ticket header.
	IDClaim        = "ticket-claim"         // ticketID
	IDUnclaim      = "ticket-unclaim"       // ticketID
	IDClose        = "ticket-close"         // ticketID
	IDRequestClose = "ticket-request-close" // ticketID
	IDExpire       = "ticket-expire"        // ticketID
	IDEscalate     = "ticket-escalate"      // ticketID
	IDDeescalate   = "ticket-deescalate"    // ticketID
	IDSupportVC    = "ticket-vc"            // ticketID

	// Dialog buttons.
	IDCloseWithoutReason = "ticket-close-without-reason" // ticketID
	IDCloseCancel        = "ticket-close-cancel"         // ticketID
	IDCloseAccept        = "ticket-close-accept"         // ticketID
	IDCloseDecline       = "ticket-close-decline"        // ticketID
	IDSwitchForm         = "ticket-switch-form"          // ticketID
)

const idSep = "@"

// CustomID builds a component custom ID.
func CustomID(kind string, parts ...string) string {
	elems := append([]string{"", kind}, parts...)
	return strings.Join(elems, idSep)
}

// ParseCustomID splits a component custom ID into its kind and parts. It
// reports false for IDs that do not use this scheme.
func ParseCustomID(id string) (string, []string, bool) {
	if !strings.HasPrefix(id, idSep) {
		return "", nil, false
	}
	elems := strings.Split(id[1:], idSep)
	if len(elems) == 0 || elems[0] == "" {
		return "", nil, false
	}
	return elems[0], elems[1:], true
}
