package relay

import "strings"

// BaseURL derives the HTTP base URL of a relay from its WebSocket URL.
func BaseURL(relayURL string) string {
	switch {
	case strings.HasPrefix(relayURL, "wss://"):
		relayURL = "https://" + strings.TrimPrefix(relayURL, "wss://")
	case strings.HasPrefix(relayURL, "ws://"):
		relayURL = "http://" + strings.TrimPrefix(relayURL, "ws://")
	}
	return strings.TrimSuffix(relayURL, "/ws")
}
