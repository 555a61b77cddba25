// Package realtime implements the websocket fan-out layer: an authenticated
// connection registry, per-device and per-user subscriptions, and server-push
// of domain events to the matching subscriber sets.
package realtime

// Principal identifies the authenticated user behind a connection.
type Principal struct {
	UserID   uint
	Username string
	Role     string
}
