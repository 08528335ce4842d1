package router

// Inbound frame types. Every frame is one JSON object with a "type"
// discriminant; the payload struct for each kind is decoded separately so
// dispatch stays a typed switch rather than a handler table.
const (
	frameAuth                 = "auth"
	frameGetUsers             = "get_users"
	frameMessage              = "message"
	frameFetchChannelMessages = "fetch_channel_messages"
	frameFetchDirectMessages  = "fetch_direct_messages"
	frameCreateChannel        = "create_channel"
	frameCreateGroupChat      = "create_group_chat"
	frameJoinChannel          = "join_channel"
	frameMarkChannelRead      = "mark_channel_read"
)

type envelope struct {
	Type string `json:"type"`
}

type authFrame struct {
	UserID int `json:"userId"`
}

type messageFrame struct {
	Content    string `json:"content"`
	Image      string `json:"image"`
	ChannelID  *int   `json:"channelId"`
	ReceiverID *int   `json:"receiverId"`
}

type fetchChannelMessagesFrame struct {
	ChannelID int `json:"channelId"`
}

type fetchDirectMessagesFrame struct {
	UserID int `json:"userId"`
}

type createChannelFrame struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createGroupChatFrame struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberIDs   []int  `json:"memberIds"`
}

type joinChannelFrame struct {
	ChannelID int `json:"channelId"`
}

type markChannelReadFrame struct {
	ChannelID int `json:"channelId"`
	MessageID int `json:"messageId"`
}
