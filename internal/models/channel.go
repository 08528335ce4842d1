package models

// Channel is a named room. Group chats are channels with IsGroupChat and
// IsPrivate set; they are only announced to their members.
type Channel struct {
	ID          int    `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	CreatedByID int    `db:"created_by_id" json:"createdById"`
	IsGroupChat bool   `db:"is_group_chat" json:"isGroupChat"`
	IsPrivate   bool   `db:"is_private" json:"isPrivate"`
}

// ChannelMembership asserts that a user belongs to a channel. It is the sole
// authority for membership checks and carries the per-user read cursor.
type ChannelMembership struct {
	ID                int  `db:"id" json:"id"`
	ChannelID         int  `db:"channel_id" json:"channelId"`
	UserID            int  `db:"user_id" json:"userId"`
	LastReadMessageID *int `db:"last_read_message_id" json:"lastReadMessageId"`
}
