package store

import (
	"context"
	"errors"

	"chat-hub/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrDuplicateName      = errors.New("channel name already exists")
	ErrAlreadyMember      = errors.New("already a member of this channel")
	ErrMembershipNotFound = errors.New("membership not found")
)

// Store owns all persisted entities. Absence is reported with the sentinel
// errors above, never a panic. Lookups by username or channel name are
// case-insensitive. Name-claiming operations (CreateUser, CreateChannel,
// AddMember) are atomic: under concurrent identical calls exactly one wins.
type Store interface {
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, username, displayName string) (models.User, error)
	UpdateUserStatus(ctx context.Context, id int, status string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersByIDs(ctx context.Context, ids []int) ([]models.User, error)

	GetChannel(ctx context.Context, id int) (models.Channel, error)
	GetChannelByName(ctx context.Context, name string) (models.Channel, error)
	CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)

	CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error)
	ListChannelMessages(ctx context.Context, channelID int) ([]models.Message, error)
	ListDirectMessages(ctx context.Context, userID, otherID int) ([]models.Message, error)
	LastMessageID(ctx context.Context, channelID int) (int, error)

	AddMember(ctx context.Context, channelID, userID int) (models.ChannelMembership, error)
	IsMember(ctx context.Context, channelID, userID int) (bool, error)
	ListMemberIDs(ctx context.Context, channelID int) ([]int, error)
	ListChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error)
	ListMembershipsForUser(ctx context.Context, userID int) ([]models.ChannelMembership, error)
	SetLastRead(ctx context.Context, channelID, userID, messageID int) error
}
