package models

import "time"

// Message is either a channel message (ChannelID set, ReceiverID unset) or a
// direct message (ReceiverID set), never both and never neither. Messages are
// immutable once created.
type Message struct {
	ID         int       `db:"id" json:"id"`
	Content    string    `db:"content" json:"content"`
	Image      string    `db:"image" json:"image"`
	ChannelID  *int      `db:"channel_id" json:"channelId"`
	SenderID   int       `db:"sender_id" json:"senderId"`
	ReceiverID *int      `db:"receiver_id" json:"receiverId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// NewMessage is the payload accepted by the store when persisting a message.
// Target validation happens in the router, not here.
type NewMessage struct {
	Content    string
	Image      string
	ChannelID  *int
	SenderID   int
	ReceiverID *int
}

// FullMessage is a message with its sender profile denormalized, the shape
// delivered over the websocket.
type FullMessage struct {
	Message
	Sender *User `json:"sender,omitempty"`
}
