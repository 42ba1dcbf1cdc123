package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

const (
	// steamLookupTimeout bounds the identity lookup; the modal must still
	// open promptly when the upstream is slow.
	steamLookupTimeout = 2 * time.Second

	// steamLookupMaxBody caps how much of the lookup response is read.
	steamLookupMaxBody = 256

	// steamURLPlaceholder is replaced with the Discord user ID in the
	// lookup URL.
	steamURLPlaceholder = "{id}"
)

// steamPrefill returns the value to pre-populate an identity form entry
// with. A previously stored value wins; otherwise the panel's lookup URL is
// tried. Empty means the user types it themselves.
func steamPrefill(ctx context.Context, a IApp, panel *panels.Panel, userID string) string {
	if v := a.Ticketing().StoredSteamID(ctx, userID); v != "" {
		return v
	}
	if panel == nil || panel.PreFetchSteamURL == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, steamLookupTimeout)
	defer cancel()

	url := strings.ReplaceAll(panel.PreFetchSteamURL, steamURLPlaceholder, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		a.Log().Warn("Error building steam lookup request", slog.String(logging.KeyError, err.Error()))
		return ""
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.Log().Warn("Error looking up steam id", slog.String(logging.KeyError, err.Error()))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.Log().Warn("Steam lookup returned non-200", slog.String("status", fmt.Sprintf("%d", resp.StatusCode)))
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, steamLookupMaxBody))
	if err != nil {
		a.Log().Warn("Error reading steam lookup response", slog.String(logging.KeyError, err.Error()))
		return ""
	}
	return strings.TrimSpace(string(body))
}
