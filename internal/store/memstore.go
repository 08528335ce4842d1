package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-hub/internal/models"
)

// MemStore is the in-memory Store. All maps are guarded by a single RWMutex;
// id counters are only advanced under the write lock, so assignment is
// atomic across concurrent creators.
type MemStore struct {
	mu sync.RWMutex

	users          map[int]models.User
	usersByName    map[string]int // lowercased username -> id
	channels       map[int]models.Channel
	channelsByName map[string]int // lowercased name -> id
	messages       map[int]models.Message
	memberships    map[int]models.ChannelMembership

	userID       int
	channelID    int
	messageID    int
	membershipID int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:          make(map[int]models.User),
		usersByName:    make(map[string]int),
		channels:       make(map[int]models.Channel),
		channelsByName: make(map[string]int),
		messages:       make(map[int]models.Message),
		memberships:    make(map[int]models.ChannelMembership),
	}
}

func (s *MemStore) GetUser(ctx context.Context, id int) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByName[strings.ToLower(username)]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *MemStore) CreateUser(ctx context.Context, username, displayName string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	if _, exists := s.usersByName[key]; exists {
		return models.User{}, ErrUsernameTaken
	}

	s.userID++
	user := models.User{
		ID:          s.userID,
		Username:    username,
		DisplayName: displayName,
		Avatar:      avatarURL(username),
		Status:      models.StatusOffline,
	}
	s.users[user.ID] = user
	s.usersByName[key] = user.ID
	return user, nil
}

func (s *MemStore) UpdateUserStatus(ctx context.Context, id int, status string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	user.Status = status
	s.users[id] = user
	return user, nil
}

func (s *MemStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemStore) ListUsersByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *MemStore) GetChannel(ctx context.Context, id int) (models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channel, ok := s.channels[id]
	if !ok {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, nil
}

func (s *MemStore) GetChannelByName(ctx context.Context, name string) (models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.channelsByName[strings.ToLower(name)]
	if !ok {
		return models.Channel{}, ErrChannelNotFound
	}
	return s.channels[id], nil
}

// CreateChannel claims the name and inserts in one step under the write
// lock, so two concurrent creates with the same name cannot both succeed.
func (s *MemStore) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(ch.Name)
	if _, exists := s.channelsByName[key]; exists {
		return models.Channel{}, ErrDuplicateName
	}

	s.channelID++
	ch.ID = s.channelID
	s.channels[ch.ID] = ch
	s.channelsByName[key] = ch.ID
	return ch, nil
}

func (s *MemStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	channels := make([]models.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

func (s *MemStore) CreateMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messageID++
	stored := models.Message{
		ID:         s.messageID,
		Content:    msg.Content,
		Image:      msg.Image,
		ChannelID:  msg.ChannelID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages[stored.ID] = stored
	return stored, nil
}

func (s *MemStore) ListChannelMessages(ctx context.Context, channelID int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var msgs []models.Message
	for _, m := range s.messages {
		if m.ChannelID != nil && *m.ChannelID == channelID && m.ReceiverID == nil {
			msgs = append(msgs, m)
		}
	}
	sortMessages(msgs)
	return msgs, nil
}

func (s *MemStore) ListDirectMessages(ctx context.Context, userID, otherID int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var msgs []models.Message
	for _, m := range s.messages {
		if m.ReceiverID == nil {
			continue
		}
		if (m.SenderID == userID && *m.ReceiverID == otherID) ||
			(m.SenderID == otherID && *m.ReceiverID == userID) {
			msgs = append(msgs, m)
		}
	}
	sortMessages(msgs)
	return msgs, nil
}

func (s *MemStore) LastMessageID(ctx context.Context, channelID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := 0
	for _, m := range s.messages {
		if m.ChannelID != nil && *m.ChannelID == channelID && m.ReceiverID == nil && m.ID > last {
			last = m.ID
		}
	}
	return last, nil
}

func (s *MemStore) AddMember(ctx context.Context, channelID, userID int) (models.ChannelMembership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.memberships {
		if m.ChannelID == channelID && m.UserID == userID {
			return models.ChannelMembership{}, ErrAlreadyMember
		}
	}

	s.membershipID++
	membership := models.ChannelMembership{
		ID:        s.membershipID,
		ChannelID: channelID,
		UserID:    userID,
	}
	s.memberships[membership.ID] = membership
	return membership, nil
}

func (s *MemStore) IsMember(ctx context.Context, channelID, userID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.memberships {
		if m.ChannelID == channelID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) ListMemberIDs(ctx context.Context, channelID int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int
	for _, m := range s.memberships {
		if m.ChannelID == channelID {
			ids = append(ids, m.UserID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *MemStore) ListChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var channels []models.Channel
	for _, m := range s.memberships {
		if m.UserID == userID {
			if ch, ok := s.channels[m.ChannelID]; ok {
				channels = append(channels, ch)
			}
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

func (s *MemStore) ListMembershipsForUser(ctx context.Context, userID int) ([]models.ChannelMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var memberships []models.ChannelMembership
	for _, m := range s.memberships {
		if m.UserID == userID {
			memberships = append(memberships, m)
		}
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i].ID < memberships[j].ID })
	return memberships, nil
}

// SetLastRead overwrites the read cursor unconditionally; the client is
// trusted and may move it backward.
func (s *MemStore) SetLastRead(ctx context.Context, channelID, userID, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.memberships {
		if m.ChannelID == channelID && m.UserID == userID {
			m.LastReadMessageID = &messageID
			s.memberships[id] = m
			return nil
		}
	}
	return ErrMembershipNotFound
}

func sortMessages(msgs []models.Message) {
	// Ids are monotonically increasing, so id order is creation order.
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
}

func avatarURL(username string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%s", username)
}
