package models

// Outbound frame types pushed over websocket connections.
const (
	EventAuthSuccess       = "auth_success"
	EventAuthError         = "auth_error"
	EventUsersList         = "users_list"
	EventChannelsList      = "channels_list"
	EventChannelMessages   = "channel_messages"
	EventDirectMessages    = "direct_messages"
	EventChannelMessage    = "channel_message"
	EventDirectMessage     = "direct_message"
	EventUserStatus        = "user_status"
	EventNewChannel        = "new_channel"
	EventChannelCreated    = "channel_created"
	EventJoinedChannel     = "joined_channel"
	EventUserJoinedChannel = "user_joined_channel"
	EventUnreadChannels    = "unread_channels"
	EventError             = "error"
)

// ServerEvent is the envelope for frames pushed to clients. Only the fields
// relevant to a given Type are populated; the rest are omitted.
type ServerEvent struct {
	Type       string        `json:"type"`
	User       *User         `json:"user,omitempty"`
	Users      []User        `json:"users,omitempty"`
	Channel    *Channel      `json:"channel,omitempty"`
	Channels   []Channel     `json:"channels,omitempty"`
	Message    *FullMessage  `json:"message,omitempty"`
	Messages   []FullMessage `json:"messages,omitempty"`
	UserID     int           `json:"userId,omitempty"`
	ChannelID  int           `json:"channelId,omitempty"`
	ChannelIDs []int         `json:"channelIds,omitempty"`
	Status     string        `json:"status,omitempty"`
}

// ErrorEvent reports a failed event back to the originating connection only.
// It never closes the connection.
type ErrorEvent struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}
