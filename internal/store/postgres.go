package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-hub/internal/models"
)

// PostgresStore is a sqlx-backed Store. Uniqueness is enforced by the
// database (unique indexes on LOWER(username), LOWER(name) and
// (channel_id, user_id)), so name claims are atomic without a
// check-then-insert window.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUser(ctx context.Context, id int) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT id, username, display_name, avatar, status, title FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT id, username, display_name, avatar, status, title FROM users WHERE LOWER(username)=LOWER($1)`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, displayName string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO users (username, display_name, avatar, status, title) VALUES ($1, $2, $3, $4, '')
         RETURNING id, username, display_name, avatar, status, title`,
		username, displayName, avatarURL(username), models.StatusOffline).StructScan(&user)
	if isUniqueViolation(err) {
		return models.User{}, ErrUsernameTaken
	}
	return user, err
}

func (s *PostgresStore) UpdateUserStatus(ctx context.Context, id int, status string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowxContext(ctx,
		`UPDATE users SET status=$2 WHERE id=$1 RETURNING id, username, display_name, avatar, status, title`,
		id, status).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.SelectContext(ctx, &users, `SELECT id, username, display_name, avatar, status, title FROM users ORDER BY id ASC`)
	return users, err
}

func (s *PostgresStore) ListUsersByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := s.db.SelectContext(ctx, &users,
		`SELECT id, username, display_name, avatar, status, title FROM users WHERE id = ANY($1) ORDER BY id ASC`,
		pq.Array(ids))
	return users, err
}

func (s *PostgresStore) GetChannel(ctx context.Context, id int) (models.Channel, error) {
	var channel models.Channel
	err := s.db.GetContext(ctx, &channel, `SELECT id, name, description, created_by_id, is_group_chat, is_private FROM channels WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

func (s *PostgresStore) GetChannelByName(ctx context.Context, name string) (models.Channel, error) {
	var channel models.Channel
	err := s.db.GetContext(ctx, &channel, `SELECT id, name, description, created_by_id, is_group_chat, is_private FROM channels WHERE LOWER(name)=LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

func (s *PostgresStore) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	var channel models.Channel
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO channels (name, description, created_by_id, is_group_chat, is_private) VALUES ($1, $2, $3, $4, $5)
         RETURNING id, name, description, created_by_id, is_group_chat, is_private`,
		ch.Name, ch.Description, ch.CreatedByID, ch.IsGroupChat, ch.IsPrivate).StructScan(&channel)
	if isUniqueViolation(err) {
		return models.Channel{}, ErrDuplicateName
	}
	return channel, err
}

func (s *PostgresStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	err := s.db.SelectContext(ctx, &channels, `SELECT id, name, description, created_by_id, is_group_chat, is_private FROM channels ORDER BY id ASC`)
	return channels, err
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	var stored models.Message
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO messages (content, image, channel_id, sender_id, receiver_id) VALUES ($1, $2, $3, $4, $5)
         RETURNING id, content, image, channel_id, sender_id, receiver_id, created_at`,
		msg.Content, msg.Image, msg.ChannelID, msg.SenderID, msg.ReceiverID).StructScan(&stored)
	return stored, err
}

func (s *PostgresStore) ListChannelMessages(ctx context.Context, channelID int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.SelectContext(ctx, &msgs,
		`SELECT id, content, image, channel_id, sender_id, receiver_id, created_at FROM messages
         WHERE channel_id=$1 AND receiver_id IS NULL ORDER BY id ASC`, channelID)
	return msgs, err
}

func (s *PostgresStore) ListDirectMessages(ctx context.Context, userID, otherID int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.SelectContext(ctx, &msgs,
		`SELECT id, content, image, channel_id, sender_id, receiver_id, created_at FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1) ORDER BY id ASC`,
		userID, otherID)
	return msgs, err
}

func (s *PostgresStore) LastMessageID(ctx context.Context, channelID int) (int, error) {
	var last int
	err := s.db.GetContext(ctx, &last,
		`SELECT COALESCE(MAX(id), 0) FROM messages WHERE channel_id=$1 AND receiver_id IS NULL`, channelID)
	return last, err
}

func (s *PostgresStore) AddMember(ctx context.Context, channelID, userID int) (models.ChannelMembership, error) {
	var membership models.ChannelMembership
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)
         RETURNING id, channel_id, user_id, last_read_message_id`,
		channelID, userID).StructScan(&membership)
	if isUniqueViolation(err) {
		return models.ChannelMembership{}, ErrAlreadyMember
	}
	return membership, err
}

func (s *PostgresStore) IsMember(ctx context.Context, channelID, userID int) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channel_members WHERE channel_id=$1 AND user_id=$2)`, channelID, userID)
	return exists, err
}

func (s *PostgresStore) ListMemberIDs(ctx context.Context, channelID int) ([]int, error) {
	var ids []int
	err := s.db.SelectContext(ctx, &ids, `SELECT user_id FROM channel_members WHERE channel_id=$1 ORDER BY user_id ASC`, channelID)
	return ids, err
}

func (s *PostgresStore) ListChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error) {
	var channels []models.Channel
	err := s.db.SelectContext(ctx, &channels,
		`SELECT c.id, c.name, c.description, c.created_by_id, c.is_group_chat, c.is_private FROM channels c
         INNER JOIN channel_members cm ON cm.channel_id = c.id WHERE cm.user_id=$1 ORDER BY c.id ASC`, userID)
	return channels, err
}

func (s *PostgresStore) ListMembershipsForUser(ctx context.Context, userID int) ([]models.ChannelMembership, error) {
	var memberships []models.ChannelMembership
	err := s.db.SelectContext(ctx, &memberships,
		`SELECT id, channel_id, user_id, last_read_message_id FROM channel_members WHERE user_id=$1 ORDER BY id ASC`, userID)
	return memberships, err
}

func (s *PostgresStore) SetLastRead(ctx context.Context, channelID, userID, messageID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE channel_members SET last_read_message_id=$3 WHERE channel_id=$1 AND user_id=$2`,
		channelID, userID, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
