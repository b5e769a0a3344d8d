package ports

import "context"

// Notifier dispatches the one-shot completion notification. The payload
// is a flat key/value object: fixed identity tags plus the serialized
// answer summary. Implementations are fire-and-forget: the engine logs
// failures and never retries or surfaces them to the participant.
type Notifier interface {
	Notify(ctx context.Context, payload map[string]string) error
}

// RedirectBroker broadcasts the completion redirect signal to any
// embedding context (e.g. an SSE stream consumed by a host page).
// When no context is listening or the broadcast fails, the engine falls
// back to its direct-navigation callback.
type RedirectBroker interface {
	BroadcastRedirect(ctx context.Context, sessionID, url string) error
}
