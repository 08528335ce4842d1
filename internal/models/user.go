package models

// Presence states observed by other users. Away is reserved for a future
// heartbeat-driven idle detector and is never emitted by the hub itself.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

// User represents a chat account. Status reflects live connectivity and is
// mutated only by connect/disconnect handling.
type User struct {
	ID          int    `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"displayName"`
	Avatar      string `db:"avatar" json:"avatar"`
	Status      string `db:"status" json:"status"`
	Title       string `db:"title" json:"title"`
}
