package ws

import "time"

// ConnInfo carries per-connection metadata used for logging and event
// publishing. It is set once at upgrade time and never mutated.
type ConnInfo struct {
	ConnID      string
	IP          string
	RequestID   string
	ConnectedAt time.Time
}
